package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectRoot returns the absolute project root. An empty configured root
// means the current working directory.
func ProjectRoot(configured string) (string, error) {
	if configured == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(configured)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root %s: %w", configured, err)
	}
	return abs, nil
}

// ResolvePath joins a relative path onto root. Absolute paths and DuckDB
// special paths (":memory:", "md:...") are returned unchanged.
func ResolvePath(root, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) || len(path) >= 3 && path[:3] == "md:" {
		return path
	}
	return filepath.Join(root, path)
}
