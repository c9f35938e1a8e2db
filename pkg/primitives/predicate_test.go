package primitives

import (
	"testing"

	dberror "imputedb/pkg/error"
)

func TestPredicate_Flip(t *testing.T) {
	tests := []struct {
		in       Predicate
		expected Predicate
	}{
		{GreaterThan, LessThan},
		{LessThan, GreaterThan},
		{GreaterThanOrEqual, LessThanOrEqual},
		{LessThanOrEqual, GreaterThanOrEqual},
		{Equals, Equals},
		{NotEqual, NotEqual},
		{Like, Like},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := tt.in.Flip(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
			if got := tt.in.Flip().Flip(); got != tt.in {
				t.Errorf("double flip of %s gave %s", tt.in, got)
			}
		})
	}
}

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		in       string
		expected Predicate
		wantErr  bool
	}{
		{"=", Equals, false},
		{"<>", NotEqual, false},
		{"!=", NotEqual, false},
		{" >= ", GreaterThanOrEqual, false},
		{"like", Like, false},
		{"~", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePredicate(tt.in)
			if tt.wantErr {
				if !dberror.HasCode(err, dberror.CodeInvalidArgument) {
					t.Errorf("expected invalid argument for %q, got %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestPredicate_Classification(t *testing.T) {
	if !Equals.IsEquality() || !Like.IsEquality() {
		t.Error("= and LIKE should be equality operators")
	}
	if NotEqual.IsEquality() || NotEqual.IsOrdering() {
		t.Error("!= is neither equality nor ordering")
	}
	if !LessThanOrEqual.IsOrdering() {
		t.Error("<= should be ordering")
	}
}
