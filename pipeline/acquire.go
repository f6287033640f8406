package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const StageAcquire = "acquire"

// TargetPolicy decides what happens to files already in the raw directory.
type TargetPolicy string

const (
	// PolicyAccumulate leaves existing files in place; downloads overwrite same-named files.
	PolicyAccumulate TargetPolicy = "accumulate"
	// PolicyReplace removes the directory's entries before downloading.
	PolicyReplace TargetPolicy = "replace"
)

// Catalog is the remote dataset catalog.
type Catalog interface {
	Authenticate(ctx context.Context) error
	DatasetMetadata(ctx context.Context, dataset, dir string) (string, error)
	DownloadDatasetFiles(ctx context.Context, dataset, dir string) ([]string, error)
}

type AcquireConfig struct {
	Dataset string
	Dir     string
	Policy  TargetPolicy
	// CredentialsDir is only used in remediation hints.
	CredentialsDir string
}

type AcquireResult struct {
	Dir          string
	MetadataPath string
	Downloaded   []string
	// Files lists the directory's direct entries in directory listing order.
	Files []string
}

// Acquire authenticates against the catalog, downloads the dataset's
// metadata and files into cfg.Dir and lists the directory. Every remote
// failure is returned as a *StageError and is not retried.
func Acquire(ctx context.Context, cfg AcquireConfig, catalog Catalog, logger *slog.Logger) (*AcquireResult, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating raw directory %s: %w", cfg.Dir, err)
	}

	if err := catalog.Authenticate(ctx); err != nil {
		return nil, &StageError{
			Stage: StageAcquire,
			Op:    "authenticate",
			Kind:  KindConfiguration,
			Err:   err,
			Hints: authHints(cfg.CredentialsDir),
		}
	}

	if cfg.Policy == PolicyReplace {
		logger.Info("Clearing raw directory", "dir", cfg.Dir)
		if err := clearDir(cfg.Dir); err != nil {
			return nil, err
		}
	}

	logger.Info("Downloading metadata...", "dataset", cfg.Dataset)
	metadataPath, err := catalog.DatasetMetadata(ctx, cfg.Dataset, cfg.Dir)
	if err != nil {
		return nil, &StageError{
			Stage: StageAcquire,
			Op:    "fetch metadata",
			Kind:  KindRemote,
			Err:   err,
			Hints: remoteHints(cfg.Dataset),
		}
	}

	logger.Info("Downloading dataset from kaggle...", "dataset", cfg.Dataset)
	downloaded, err := catalog.DownloadDatasetFiles(ctx, cfg.Dataset, cfg.Dir)
	if err != nil {
		return nil, &StageError{
			Stage: StageAcquire,
			Op:    "fetch files",
			Kind:  KindRemote,
			Err:   err,
			Hints: append(remoteHints(cfg.Dataset), fmt.Sprintf("Not enough free disk space in %s", cfg.Dir)),
		}
	}

	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("error listing raw directory %s: %w", cfg.Dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, entry.Name())
	}

	return &AcquireResult{
		Dir:          cfg.Dir,
		MetadataPath: metadataPath,
		Downloaded:   downloaded,
		Files:        files,
	}, nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("error listing raw directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("error clearing raw directory %s: %w", dir, err)
		}
	}
	return nil
}

func authHints(credentialsDir string) []string {
	file := "~/.kaggle/kaggle.json"
	if credentialsDir != "" {
		file = filepath.Join(credentialsDir, "kaggle.json")
	}
	return []string{
		fmt.Sprintf("No API token at %s: create one under Account > API on kaggle.com and save it there", file),
		"Alternatively export KAGGLE_USERNAME and KAGGLE_KEY (a .env file in the working directory is loaded)",
		fmt.Sprintf("The token file must be readable only by you: chmod 600 %s", file),
		"The token file must be valid JSON with 'username' and 'key' fields",
	}
}

func remoteHints(dataset string) []string {
	return []string{
		fmt.Sprintf("The dataset identifier %q is wrong or the dataset was removed", dataset),
		"No network connection to kaggle.com",
		"The account has no access to the dataset",
		"The API token is expired or was revoked",
	}
}
