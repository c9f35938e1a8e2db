package optimizer

import (
	dberror "imputedb/pkg/error"
	"imputedb/pkg/logging"
	costmodel "imputedb/pkg/optimizer/cost_model"
	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/optimizer/plancache"

	"github.com/BurntSushi/toml"
)

// Config holds configuration for the imputation-aware optimizer
type Config struct {
	CachePolicy string `toml:"cache_policy"` // "pareto" or "single"

	// Approximate forces approximate Pareto admission. It is also switched on
	// when ApproximateTableThreshold or more tables have required attributes.
	Approximate               bool `toml:"approximate"`
	ApproximateTableThreshold int  `toml:"approximate_table_threshold"`

	ImputeAtBase bool    `toml:"impute_at_base"` // Repair whole base tables up front
	LossBound    float64 `toml:"loss_bound"`     // Negative selects by weighted cost
	CleanOutput  bool    `toml:"clean_output"`   // Selected and ordered columns must be clean

	ImputationModel string `toml:"imputation_model"` // "random" or "mean"

	Cost    costmodel.CostModel `toml:"cost"`
	Logging logging.Config      `toml:"logging"`
}

// DefaultConfig returns the default optimizer configuration
func DefaultConfig() Config {
	return Config{
		CachePolicy:               "pareto",
		ApproximateTableThreshold: 7,
		LossBound:                 -1,
		ImputationModel:           "random",
		Cost:                      costmodel.DefaultCostModel(),
		Logging: logging.Config{
			Level:  logging.LevelInfo,
			Format: "text",
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults and installs its
// [logging] section as the process logger.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, dberror.Wrap(err, dberror.CodeInvalidConfig, "LoadConfig", "optimizer")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.InitLogging(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig decodes TOML text on top of the defaults.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, dberror.Wrap(err, dberror.CodeInvalidConfig, "ParseConfig", "optimizer")
	}
	return cfg, cfg.Validate()
}

// InitLogging replaces the process logger with one built from c.Logging.
// Every optimizer logs through it, whichever config it was created with.
func (c Config) InitLogging() error {
	if err := logging.Configure(c.Logging); err != nil {
		return dberror.Wrap(err, dberror.CodeInvalidConfig, "InitLogging", "optimizer")
	}
	logging.Debug("logging configured",
		"level", string(c.Logging.Level),
		"format", c.Logging.Format,
		"seq", c.Logging.SeqURL != "")
	return nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if _, ok := plancache.PolicyByName(c.CachePolicy, 0); !ok {
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig,
			"unknown cache policy %q", c.CachePolicy).WithHint(`use "pareto" or "single"`)
	}
	if c.ApproximateTableThreshold < 1 {
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig,
			"approximate_table_threshold must be positive, got %d", c.ApproximateTableThreshold)
	}
	if c.LossBound >= 0 && c.CachePolicy == "single" {
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig,
			"loss_bound needs the pareto cache policy")
	}
	if _, err := imputed.ModelByName(c.ImputationModel); err != nil {
		return err
	}
	if !c.Logging.Level.Valid() {
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig,
			"unknown log level %q", c.Logging.Level).WithHint("use debug, info, warn or error")
	}
	return c.Cost.Validate()
}

func (c Config) estimator() (imputed.Estimator, error) {
	model, err := imputed.ModelByName(c.ImputationModel)
	if err != nil {
		return imputed.Estimator{}, err
	}
	return imputed.Estimator{Costs: c.Cost, Model: model}, nil
}
