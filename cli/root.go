package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KaurMahima/healthcare-sql-analytics/config"
	"github.com/KaurMahima/healthcare-sql-analytics/logger"
	"github.com/KaurMahima/healthcare-sql-analytics/metrics"
	"github.com/KaurMahima/healthcare-sql-analytics/pipeline"
	"github.com/KaurMahima/healthcare-sql-analytics/utils"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const configDirFlag = "config-dir"

// Execute runs cmd with the process arguments and exits 1 on failure.
func Execute(cmd *cobra.Command) {
	if code := Run(cmd, os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

// Run executes cmd and returns the process exit code. Failures are reported
// on stderr as a diagnostic block.
func Run(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err != nil {
		pipeline.WriteDiagnostic(stderr, err)
		return 1
	}
	return 0
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String(configDirFlag, ".", "directory holding config.base.yaml and config.<APP_ENV>.yaml")
}

func isRunningOnGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// loadDotEnv loads path into the process environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if isRunningOnGitHubActions() {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// runEnv is everything a stage command needs, built once per process.
type runEnv struct {
	cfg     *config.Config
	log     *slog.Logger
	root    string
	metrics *metrics.RunMetrics
}

func (e *runEnv) path(p string) string {
	return utils.ResolvePath(e.root, p)
}

// finish records the run outcome and writes the metrics textfile if one is configured.
func (e *runEnv) finish(err error) {
	e.metrics.Finish(err)
	if werr := e.metrics.WriteTextfile(e.path(e.cfg.Metrics.Textfile)); werr != nil {
		e.log.Warn(fmt.Sprintf("Error writing metrics: %v", werr))
	}
}

func initializeConfigAndLogger(cmd *cobra.Command, stage string) (*runEnv, error) {
	configDir, err := cmd.Flags().GetString(configDirFlag)
	if err != nil {
		return nil, err
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	// 1. Open the base configuration file
	baseConfigFile, err := os.Open(filepath.Join(configDir, "config.base.yaml"))
	if err != nil {
		return nil, fmt.Errorf("error opening base config file: %w", err)
	}
	defer baseConfigFile.Close()

	// 2. Environment-specific config is optional
	env := os.Getenv("APP_ENV")
	var envConfig io.Reader
	envConfigFilename := filepath.Join(configDir, fmt.Sprintf("config.%s.yaml", env))
	if env != "" {
		if envConfigFile, err := os.Open(envConfigFilename); err == nil {
			defer envConfigFile.Close()
			envConfig = envConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error opening environment config file: %w", err)
		}
	}

	// 3. Create the config
	cfg, err := config.NewConfig(baseConfigFile, envConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	root, err := utils.ProjectRoot(cfg.Paths.Root)
	if err != nil {
		return nil, err
	}

	log := logger.NewLoggerWithLevel(cmd.OutOrStdout(), cfg.Log.Level).With(
		"run_id", uuid.NewString(),
		"stage", stage,
	)
	log.Debug("Configuration loaded", "env", cfg.Env, "root", root)

	return &runEnv{
		cfg:     cfg,
		log:     log,
		root:    root,
		metrics: metrics.NewRunMetrics(stage, utils.RealTimeProvider{}),
	}, nil
}
