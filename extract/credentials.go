package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const credentialsFile = "kaggle.json"

// ErrCredentialsNotFound is returned when neither the environment nor a
// kaggle.json file provide credentials.
var ErrCredentialsNotFound = errors.New("kaggle credentials not found")

type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
	// Source is "env" or the path of the file the credentials were read from.
	Source string `json:"-"`
	// Insecure is set when the credential file is readable by group or others.
	Insecure bool `json:"-"`
}

// CredentialsDir returns the directory searched for kaggle.json: configured,
// then $KAGGLE_CONFIG_DIR, then ~/.kaggle.
func CredentialsDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if dir := os.Getenv("KAGGLE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".kaggle"), nil
}

// LoadCredentials reads KAGGLE_USERNAME and KAGGLE_KEY, falling back to
// kaggle.json in the credentials directory.
func LoadCredentials(configuredDir string) (*Credentials, error) {
	username, key := os.Getenv("KAGGLE_USERNAME"), os.Getenv("KAGGLE_KEY")
	if username != "" && key != "" {
		return &Credentials{Username: username, Key: key, Source: "env"}, nil
	}

	dir, err := CredentialsDir(configuredDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, credentialsFile)

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: set KAGGLE_USERNAME and KAGGLE_KEY or create %s", ErrCredentialsNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(content, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if creds.Username == "" || creds.Key == "" {
		return nil, fmt.Errorf("%s must contain both 'username' and 'key'", path)
	}

	creds.Source = path
	creds.Insecure = info.Mode().Perm()&0o077 != 0

	return &creds, nil
}
