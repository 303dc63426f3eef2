// Package config loads colearn-examples settings from YAML with environment
// overrides for dataset locations.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colearn-ml/colearn-examples/internal/logging"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "colearn.yaml"

// Config holds all settings.
type Config struct {
	// Dataset roots
	DataDir        string `yaml:"data_dir"`
	TFDSDataDir    string `yaml:"tfds_data_dir"`
	PytorchDataDir string `yaml:"pytorch_data_dir"`

	Logging  logging.Config  `yaml:"logging"`
	Covid    CovidXrayConfig `yaml:"covid_xray"`
	Fraud    FraudConfig     `yaml:"fraud"`
	Examples ExamplesConfig  `yaml:"examples"`
}

// CovidXrayConfig configures the covid X-ray split and learner feeds.
type CovidXrayConfig struct {
	// Generator settings
	BatchSize     int     `yaml:"batch_size"`
	FeatureSize   int     `yaml:"feature_size"`
	TrainRatio    float64 `yaml:"train_ratio"`
	TestRatio     float64 `yaml:"test_ratio"`
	GeneratorSeed int64   `yaml:"generator_seed"`

	// Split settings
	ShuffleSeed      int64     `yaml:"shuffle_seed"`
	NLearners        int       `yaml:"n_learners"`
	DataSplit        []float64 `yaml:"data_split,omitempty"` // empty means equal shares
	GlobalTestRatio  float64   `yaml:"global_test_ratio"`
	NComponents      int       `yaml:"n_components"`
	OutputFolder     string    `yaml:"output_folder"`
	TestOutputFolder string    `yaml:"test_output_folder"`
}

// FraudConfig configures fraud preprocessing and its learner split.
type FraudConfig struct {
	ShuffleSeed        int64     `yaml:"shuffle_seed"`
	NLearners          int       `yaml:"n_learners"`
	DataSplit          []float64 `yaml:"data_split,omitempty"`
	TestRatio          float64   `yaml:"test_ratio"`
	OutputFolder       string    `yaml:"output_folder"`
	TestOutputFolder   string    `yaml:"test_output_folder"`
	CacheDir           string    `yaml:"cache_dir"`
	UseCache           bool      `yaml:"use_cache"`
	FillValue          float64   `yaml:"fill_value"`
	CategoricalColumns []string  `yaml:"categorical_columns,omitempty"`
	BatchSize          int       `yaml:"batch_size"`
	GeneratorSeed      int64     `yaml:"generator_seed"`
}

// ExamplesConfig configures the example runner.
type ExamplesConfig struct {
	Catalog string        `yaml:"catalog"`
	Timeout time.Duration `yaml:"timeout"`
	Ignored []string      `yaml:"ignored,omitempty"`
}

// DefaultConfig returns the defaults used by the original example scripts.
func DefaultConfig() *Config {
	tmp := os.TempDir()
	return &Config{
		Logging: logging.Config{},
		Covid: CovidXrayConfig{
			BatchSize:        8,
			FeatureSize:      64,
			TrainRatio:       0.8,
			TestRatio:        0.2,
			GeneratorSeed:    42,
			ShuffleSeed:      42,
			NLearners:        5,
			GlobalTestRatio:  0.2,
			NComponents:      64,
			OutputFolder:     filepath.Join(tmp, "covid_xray"),
			TestOutputFolder: filepath.Join(tmp, "covid_xray_test"),
		},
		Fraud: FraudConfig{
			ShuffleSeed:      42,
			NLearners:        5,
			OutputFolder:     filepath.Join(tmp, "fraud"),
			TestOutputFolder: filepath.Join(tmp, "fraud_test"),
			CacheDir:         filepath.Join(tmp, "fraud_cache"),
			UseCache:         true,
			FillValue:        -999,
			BatchSize:        10000,
			GeneratorSeed:    42,
		},
		Examples: ExamplesConfig{
			Timeout: 20 * time.Minute,
		},
	}
}

// Load reads configuration from path. An empty path tries DefaultConfigFile
// and falls back to defaults if it does not exist. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	//nolint:gosec // G304: config path is supplied by the user.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: config is not secret.
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Covid.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("covid_xray.batch_size must be positive"))
	}
	if c.Covid.NLearners <= 0 {
		errs = append(errs, fmt.Errorf("covid_xray.n_learners must be positive"))
	}
	if c.Covid.NComponents <= 0 {
		errs = append(errs, fmt.Errorf("covid_xray.n_components must be positive"))
	}
	if r := c.Covid.GlobalTestRatio; r < 0 || r >= 1 {
		errs = append(errs, fmt.Errorf("covid_xray.global_test_ratio must be in [0, 1)"))
	}
	if len(c.Covid.DataSplit) > 0 && len(c.Covid.DataSplit) != c.Covid.NLearners {
		errs = append(errs, fmt.Errorf("covid_xray.data_split has %d entries for %d learners",
			len(c.Covid.DataSplit), c.Covid.NLearners))
	}
	if c.Fraud.NLearners <= 0 {
		errs = append(errs, fmt.Errorf("fraud.n_learners must be positive"))
	}
	if r := c.Fraud.TestRatio; r < 0 || r >= 1 {
		errs = append(errs, fmt.Errorf("fraud.test_ratio must be in [0, 1)"))
	}
	if len(c.Fraud.DataSplit) > 0 && len(c.Fraud.DataSplit) != c.Fraud.NLearners {
		errs = append(errs, fmt.Errorf("fraud.data_split has %d entries for %d learners",
			len(c.Fraud.DataSplit), c.Fraud.NLearners))
	}
	if c.Examples.Timeout < 0 {
		errs = append(errs, fmt.Errorf("examples.timeout must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// FraudDataDir is the IEEE fraud-detection dataset location.
func (c *Config) FraudDataDir() string { return filepath.Join(c.DataDir, "ieee-fraud-detection") }

// XrayDataDir is the chest X-ray dataset location.
func (c *Config) XrayDataDir() string { return filepath.Join(c.DataDir, "chest_xray") }

// CovidDataDir is the covid feature-matrix dataset location.
func (c *Config) CovidDataDir() string { return filepath.Join(c.DataDir, "covid") }
