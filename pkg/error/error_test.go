package error

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBError_Format(t *testing.T) {
	err := UnknownColumn("o.amount").At("GenerateAccessCandidates", "ImputeOptimizer")

	assert.Equal(t,
		`[UNKNOWN_COLUMN] unknown column: "o.amount" (operation: GenerateAccessCandidates, component: ImputeOptimizer)`,
		err.Error())
	assert.True(t, IsUserError(err))
	assert.False(t, IsInternal(err))
	assert.Contains(t, err.FormatStack(), "Stack trace:")
}

func TestWrap_KeepsExistingContext(t *testing.T) {
	inner := MissingStatistics("orders").At("TableStats", "MapProvider")
	wrapped := fmt.Errorf("planning: %w", inner)

	got := Wrap(wrapped, CodeInvalidArgument, "Optimize", "ImputeOptimizer")
	require.NotNil(t, got)
	assert.Same(t, inner, got)
	assert.Equal(t, "TableStats", got.Operation)
	assert.Equal(t, ErrCategorySystem, got.Category)
}

func TestWrap_PlainError(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInvalidConfig, "LoadConfig", "Config"))

	base := errors.New("bad toml")
	got := Wrap(base, CodeInvalidConfig, "LoadConfig", "Config")
	assert.Equal(t, CodeInvalidConfig, got.Code)
	assert.True(t, errors.Is(got, base))
	assert.Contains(t, got.Error(), "caused by: bad toml")
}

func TestAssertionFailed(t *testing.T) {
	err := AssertionFailed(CodeNoCoveringPlan, "no plan covers %d tables", 3)

	assert.True(t, IsInternal(err))
	assert.True(t, HasCode(err, CodeNoCoveringPlan))
	assert.False(t, HasCode(err, CodeUnknownTable))
	assert.True(t, errors.HasAssertionFailure(err))
}

func TestErrorCategory_String(t *testing.T) {
	tests := map[ErrorCategory]string{
		ErrCategoryUser:        "user",
		ErrCategoryInternal:    "internal",
		ErrCategoryUnsupported: "unsupported",
		ErrCategorySystem:      "system",
	}
	for c, want := range tests {
		assert.Equal(t, want, c.String())
	}
}
