package optimizer

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/logging"
	"imputedb/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "pareto", cfg.CachePolicy)
	assert.Equal(t, 7, cfg.ApproximateTableThreshold)
	assert.Less(t, cfg.LossBound, 0.0)
	assert.Equal(t, "random", cfg.ImputationModel)
	assert.Equal(t, 1000.0, cfg.Cost.IOCostPerPage)
	assert.Equal(t, logging.LevelInfo, cfg.Logging.Level)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`
cache_policy = "single"
impute_at_base = true
clean_output = true
imputation_model = "mean"

[cost]
io_cost_per_page = 10.0
join_selectivity = 0.5

[logging]
level = "debug"
format = "json"
`)
	require.NoError(t, err)

	assert.Equal(t, "single", cfg.CachePolicy)
	assert.True(t, cfg.ImputeAtBase)
	assert.True(t, cfg.CleanOutput)
	assert.Equal(t, "mean", cfg.ImputationModel)
	assert.Equal(t, 10.0, cfg.Cost.IOCostPerPage)
	assert.Equal(t, 0.5, cfg.Cost.JoinSelectivity)
	assert.Equal(t, 4096.0, cfg.Cost.TuplesPerPage, "unset keys keep defaults")
	assert.Equal(t, 7, cfg.ApproximateTableThreshold)
	assert.Equal(t, "json", cfg.Logging.Format)

	est, err := cfg.estimator()
	require.NoError(t, err)
	assert.Equal(t, "mean", est.Model.Name())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimizer.toml")
	require.NoError(t, os.WriteFile(path, []byte("loss_bound = 2.5\napproximate = true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.LossBound)
	assert.True(t, cfg.Approximate)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, dberror.HasCode(err, dberror.CodeInvalidConfig))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		code   string
	}{
		{"unknown policy", func(c *Config) { c.CachePolicy = "dotted" }, dberror.CodeInvalidConfig},
		{"zero threshold", func(c *Config) { c.ApproximateTableThreshold = 0 }, dberror.CodeInvalidConfig},
		{"loss bound with single", func(c *Config) { c.CachePolicy = "single"; c.LossBound = 1 }, dberror.CodeInvalidConfig},
		{"negative io cost", func(c *Config) { c.Cost.IOCostPerPage = -1 }, dberror.CodeInvalidConfig},
		{"loss factor below one", func(c *Config) { c.Cost.LossFactor = 0.5 }, dberror.CodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, dberror.HasCode(err, tt.code), "got %v", err)
		})
	}

	t.Run("unknown model", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ImputationModel = "regression"
		require.Error(t, cfg.Validate())
	})
}

func TestParseConfigRejectsBadSyntax(t *testing.T) {
	_, err := ParseConfig("cache_policy = ")
	require.Error(t, err)
	assert.True(t, dberror.HasCode(err, dberror.CodeInvalidConfig))
}

// cycleQuery joins a, b and c pairwise, so one of the three joins always
// closes a cycle.
func cycleQuery() Query {
	return Query{
		Tables: []TableRef{{Alias: "a", Table: "a"}, {Alias: "b", Table: "b"}, {Alias: "c", Table: "c"}},
		Joins: []JoinPredicate{
			{Left: qn("a", "id"), Right: qn("b", "a_id"), Op: primitives.Equals},
			{Left: qn("a", "id"), Right: qn("c", "a_id"), Op: primitives.Equals},
			{Left: qn("b", "a_id"), Right: qn("c", "a_id"), Op: primitives.Equals},
		},
		Select: []primitives.QualifiedName{qn("a", "id")},
	}
}

func TestInitLogging_Level(t *testing.T) {
	tests := []struct {
		level     logging.LogLevel
		wantDebug bool
	}{
		{"debug", true},
		{logging.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Cleanup(func() { _ = logging.Close() })

			path := filepath.Join(t.TempDir(), "optimizer.log")
			cfg := DefaultConfig()
			cfg.Logging = logging.Config{Level: tt.level, OutputPath: path, Format: "json"}
			require.NoError(t, cfg.InitLogging())

			res, err := newOptimizer(t, nil).Optimize(cycleQuery())
			require.NoError(t, err)
			assert.Equal(t, 2, CountRelations(res.Cache.BestPlans(res.Graph.Aliases())[0].Joins))
			require.NoError(t, logging.Close())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			out := string(data)
			assert.Contains(t, out, `"msg":"plan selected"`)
			assert.Equal(t, tt.wantDebug, strings.Contains(out, `"msg":"planning query"`))
			assert.Equal(t, tt.wantDebug, strings.Contains(out, `"reason":"cycle"`))
		})
	}
}

func TestLoadConfig_InstallsLogging(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	dir := t.TempDir()
	logPath := filepath.Join(dir, "planner.log")
	path := filepath.Join(dir, "optimizer.toml")
	body := "[logging]\nlevel = \"debug\"\nformat = \"json\"\noutput_path = " + strconv.Quote(logPath) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadConfig(path)
	require.NoError(t, err)
	_, err = newOptimizer(t, nil).Optimize(joinAB())
	require.NoError(t, err)
	require.NoError(t, logging.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"logging configured"`)
	assert.Contains(t, string(data), `"msg":"planning query"`)
}

func TestConfigValidate_LogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, dberror.HasCode(err, dberror.CodeInvalidConfig))
}
