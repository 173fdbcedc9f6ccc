// Package paths resolves the configuration and data directories used by the
// todostore CLI and server.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative default directory names.
const (
	DefaultConfigDirName = ".todostore"
	DefaultDataDirName   = ".todostore-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "TODOSTORE_CONFIG_DIR"
	EnvDataDir   = "TODOSTORE_DATA_DIR"
)

// DatabaseFileName is the sqlite file created inside the data directory.
const DatabaseFileName = "todos.db"

// getwd is overridden in tests.
var getwd = os.Getwd

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > TODOSTORE_CONFIG_DIR env > $(CWD)/.todostore.
// The result is always absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return cwdJoin(DefaultConfigDirName)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configValue (data_dir in config.yaml) > TODOSTORE_DATA_DIR env >
// $(CWD)/.todostore-db. The result is always absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return cwdJoin(DefaultDataDirName)
}

// DatabasePath returns the sqlite file path inside dataDir.
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, DatabaseFileName)
}

func cwdJoin(name string) (string, error) {
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}
