package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindLocalConfig(t *testing.T) {
	// Create a temporary directory structure
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "subdir")
	err := os.Mkdir(subDir, 0o755)
	assert.NoError(t, err)

	// Create config file
	configYML := filepath.Join(subDir, ".fridaforge.yml")
	err = os.WriteFile(configYML, []byte("max_builds: 2"), 0o644)
	assert.NoError(t, err)

	// Test finding in subdir
	result := FindLocalConfig(subDir)
	assert.Equal(t, configYML, result)

	// Test finding in parent
	deep := filepath.Join(subDir, "deep")
	err = os.Mkdir(deep, 0o755)
	assert.NoError(t, err)

	result = FindLocalConfig(deep)
	assert.Equal(t, configYML, result)
}

func TestFindLocalConfigPrefersYml(t *testing.T) {
	tempDir := t.TempDir()

	for _, name := range []string{".fridaforge.yml", ".fridaforge.json"} {
		err := os.WriteFile(filepath.Join(tempDir, name), []byte("{}"), 0o644)
		assert.NoError(t, err)
	}

	result := FindLocalConfig(tempDir)
	assert.Equal(t, filepath.Join(tempDir, ".fridaforge.yml"), result)
}
