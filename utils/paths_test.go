package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name     string
		root     string
		path     string
		expected string
	}{
		{"relative", "/srv/project", "data/raw", "/srv/project/data/raw"},
		{"absolute", "/srv/project", "/var/data/raw", "/var/data/raw"},
		{"memory", "/srv/project", ":memory:", ":memory:"},
		{"motherduck", "/srv/project", "md:healthcare", "md:healthcare"},
		{"empty", "/srv/project", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolvePath(tt.root, tt.path))
		})
	}
}

func TestProjectRoot(t *testing.T) {
	wd, err := os.Getwd()
	assert.NoError(t, err)

	root, err := ProjectRoot("")
	assert.NoError(t, err)
	assert.Equal(t, wd, root)

	root, err = ProjectRoot("testdata")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "testdata"), root)
}
