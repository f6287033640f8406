package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Extract     ExtractConfig
	DuckDB      DuckDBConfig
	Kaggle      KaggleConfig
	Acquire     AcquireConfig
	Materialize MaterializeConfig
	Paths       PathsConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Env         string
}

type ExtractConfig struct {
	Backoff BackoffConfig
	// Timeout bounds a single HTTP request. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

type BackoffConfig struct {
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RetryMax     int           `mapstructure:"retry_max"`
}

type DuckDBConfig struct {
	Path              string   `mapstructure:"path"`
	ConnInitFnQueries []string `mapstructure:"conn_init_fn_queries"`
}

type KaggleConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	ConfigDir string `mapstructure:"config_dir"`
}

type AcquireConfig struct {
	Dataset      string `mapstructure:"dataset"`
	RawDir       string `mapstructure:"raw_dir"`
	TargetPolicy string `mapstructure:"target_policy"`
}

type MaterializeConfig struct {
	Source string `mapstructure:"source"`
	Table  string `mapstructure:"table"`
}

type PathsConfig struct {
	Root string `mapstructure:"root"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extract.backoff.retry_wait_min", time.Second)
	v.SetDefault("extract.backoff.retry_wait_max", 30*time.Second)
	v.SetDefault("extract.backoff.retry_max", 0)
	v.SetDefault("extract.timeout", time.Duration(0))
	v.SetDefault("duckdb.path", "data/processed/healthcare_data.duckdb")
	v.SetDefault("kaggle.base_url", "https://www.kaggle.com/api/v1")
	v.SetDefault("kaggle.config_dir", "")
	v.SetDefault("acquire.dataset", "prasad22/healthcare-dataset")
	v.SetDefault("acquire.raw_dir", "data/raw")
	v.SetDefault("acquire.target_policy", "accumulate")
	v.SetDefault("materialize.source", "data/raw/healthcare_dataset.csv")
	v.SetDefault("materialize.table", "healthcare_data")
	v.SetDefault("paths.root", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.textfile", "")
}

// NewConfig loads the configuration from the provided base config reader
// and merges it with the environment-specific configuration.
// Any key can be overridden with an HSA_ prefixed environment variable,
// e.g. HSA_DUCKDB_PATH.
func NewConfig(baseConfigReader io.Reader, envConfigReader io.Reader, env string) (*Config, error) {
	if env == "" {
		env = "dev"
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix("HSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if baseConfigReader != nil {
		if err := v.ReadConfig(baseConfigReader); err != nil {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	if envConfigReader != nil {
		if err := v.MergeConfig(envConfigReader); err != nil {
			return nil, fmt.Errorf("error merging %s config: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.Env = env

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Acquire.TargetPolicy {
	case "accumulate", "replace":
	default:
		return fmt.Errorf("invalid acquire.target_policy %q: must be 'accumulate' or 'replace'", c.Acquire.TargetPolicy)
	}
	if c.Acquire.Dataset == "" {
		return fmt.Errorf("acquire.dataset must be set")
	}
	if c.Materialize.Table == "" {
		return fmt.Errorf("materialize.table must be set")
	}
	return nil
}
