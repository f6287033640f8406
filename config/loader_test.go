package config

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func defaultConfig(env string) *Config {
	return &Config{
		Env: env,
		Extract: ExtractConfig{
			Backoff: BackoffConfig{
				RetryWaitMin: time.Second,
				RetryWaitMax: 30 * time.Second,
				RetryMax:     0,
			},
		},
		DuckDB: DuckDBConfig{
			Path: "data/processed/healthcare_data.duckdb",
		},
		Kaggle: KaggleConfig{
			BaseURL: "https://www.kaggle.com/api/v1",
		},
		Acquire: AcquireConfig{
			Dataset:      "prasad22/healthcare-dataset",
			RawDir:       "data/raw",
			TargetPolicy: "accumulate",
		},
		Materialize: MaterializeConfig{
			Source: "data/raw/healthcare_dataset.csv",
			Table:  "healthcare_data",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name     string
		baseYAML string
		envYAML  string
		env      string
		want     func() *Config
		wantErr  string
	}{
		{
			name:     "Defaults with empty base",
			baseYAML: ``,
			env:      "",
			want:     func() *Config { return defaultConfig("dev") },
		},
		{
			name: "Successful Load",
			baseYAML: `
extract:
  backoff:
    retry_wait_min: 2s
    retry_wait_max: 10s
    retry_max: 2
  timeout: 1m
duckdb:
  path: "test.duckdb"
acquire:
  dataset: "owner/other-dataset"
  target_policy: replace
log:
  level: debug
`,
			env: "bar",
			want: func() *Config {
				c := defaultConfig("bar")
				c.Extract.Backoff = BackoffConfig{
					RetryWaitMin: 2 * time.Second,
					RetryWaitMax: 10 * time.Second,
					RetryMax:     2,
				}
				c.Extract.Timeout = time.Minute
				c.DuckDB.Path = "test.duckdb"
				c.Acquire.Dataset = "owner/other-dataset"
				c.Acquire.TargetPolicy = "replace"
				c.Log.Level = "debug"
				return c
			},
		},
		{
			name: "Environment Override",
			baseYAML: `
duckdb:
  conn_init_fn_queries:
    - "./sql/db__stage.sql"
materialize:
  table: base_table
`,
			envYAML: `
duckdb:
  conn_init_fn_queries:
    - "./sql/db__dev.sql"
materialize:
  table: dev_table
metrics:
  textfile: "metrics/pipeline.prom"
`,
			env: "dev",
			want: func() *Config {
				c := defaultConfig("dev")
				c.DuckDB.ConnInitFnQueries = []string{"./sql/db__dev.sql"}
				c.Materialize.Table = "dev_table"
				c.Metrics.Textfile = "metrics/pipeline.prom"
				return c
			},
		},
		{
			name: "Invalid target policy",
			baseYAML: `
acquire:
  target_policy: merge
`,
			wantErr: "invalid acquire.target_policy",
		},
		{
			name: "Empty table name",
			baseYAML: `
materialize:
  table: ""
`,
			wantErr: "materialize.table must be set",
		},
		{
			name:     "Malformed environment config",
			baseYAML: ``,
			envYAML:  "duckdb:\n  path: [unterminated\n",
			env:      "prod",
			wantErr:  "error merging prod config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseConfigReader := strings.NewReader(tt.baseYAML)
			var envConfigReader io.Reader
			if tt.envYAML != "" {
				envConfigReader = strings.NewReader(tt.envYAML)
			}

			got, err := NewConfig(baseConfigReader, envConfigReader, tt.env)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want(), got, "Config structs don't match")
		})
	}
}

func TestNewConfig_EnvVariableOverride(t *testing.T) {
	t.Setenv("HSA_DUCKDB_PATH", "/tmp/override.duckdb")
	t.Setenv("HSA_ACQUIRE_TARGET_POLICY", "replace")

	got, err := NewConfig(strings.NewReader(`duckdb:
  path: "from_file.duckdb"
`), nil, "test")
	assert.NoError(t, err)
	assert.Equal(t, "/tmp/override.duckdb", got.DuckDB.Path)
	assert.Equal(t, "replace", got.Acquire.TargetPolicy)
}
