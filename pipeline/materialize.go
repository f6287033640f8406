package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const StageMaterialize = "materialize"

// Store is the embedded analytical store the raw file is loaded into.
type Store interface {
	ReplaceTableFromCSV(ctx context.Context, table, csvPath string) error
	CountRows(ctx context.Context, table string) (int64, error)
	DescribeTable(ctx context.Context, table string) ([]string, error)
	Close() error
}

// StoreOpener opens the store at path read-write, creating it if absent.
type StoreOpener func(path string) (Store, error)

type MaterializeConfig struct {
	Source    string
	StorePath string
	Table     string
}

type MaterializeResult struct {
	StorePath string
	Table     string
	Rows      int64
	Columns   []string
}

// Materialize replaces cfg.Table in the store with the full contents of
// cfg.Source and returns the resulting row count. The source is checked
// before the store is opened, so a missing input never creates a store file.
func Materialize(ctx context.Context, cfg MaterializeConfig, open StoreOpener, logger *slog.Logger) (res *MaterializeResult, err error) {
	logger.Info("Starting database creation process.")

	info, err := os.Stat(cfg.Source)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &StageError{
			Stage: StageMaterialize,
			Op:    "validate source",
			Kind:  KindMissingInput,
			Err:   fmt.Errorf("CSV file not found at %s: %w", cfg.Source, err),
			Hints: []string{"Run the acquire command first to download the raw dataset"},
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error checking source %s: %w", cfg.Source, err)
	}
	if !info.Mode().IsRegular() {
		return nil, &StageError{
			Stage: StageMaterialize,
			Op:    "validate source",
			Kind:  KindMissingInput,
			Err:   fmt.Errorf("source %s is not a regular file", cfg.Source),
		}
	}

	if isLocalStore(cfg.StorePath) {
		dir := filepath.Dir(cfg.StorePath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating store directory %s: %w", dir, err)
		}
	}

	logger.Info(fmt.Sprintf("Creating DuckDB database at %s", cfg.StorePath))
	store, err := open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("error opening store %s: %w", cfg.StorePath, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("error closing store %s: %w", cfg.StorePath, closeErr))
		}
	}()

	if err := store.ReplaceTableFromCSV(ctx, cfg.Table, cfg.Source); err != nil {
		return nil, fmt.Errorf("error loading %s into table %s: %w", cfg.Source, cfg.Table, err)
	}

	n, err := store.CountRows(ctx, cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("error counting rows in %s: %w", cfg.Table, err)
	}
	logger.Info(fmt.Sprintf("Loaded rows: %d", n), "table", cfg.Table, "rows", n)

	columns, err := store.DescribeTable(ctx, cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("error describing %s: %w", cfg.Table, err)
	}
	logger.Info("Inferred table schema", "table", cfg.Table, "columns", columns)

	return &MaterializeResult{
		StorePath: cfg.StorePath,
		Table:     cfg.Table,
		Rows:      n,
		Columns:   columns,
	}, nil
}

func isLocalStore(path string) bool {
	return path != "" && path != ":memory:" && !strings.HasPrefix(path, "md:")
}
