package config

import (
	"os"
	"path/filepath"
)

// baseDir returns the Clowder home directory, ~/.clowder by default.
// CLOWDER_HOME overrides it.
func baseDir() string {
	if dir := os.Getenv("CLOWDER_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clowder"
	}
	return filepath.Join(home, ".clowder")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// DefaultSessionDir returns the default session log directory.
func DefaultSessionDir() string {
	return filepath.Join(baseDir(), "sessions")
}

// DefaultSQLitePath returns the default session database location.
func DefaultSQLitePath() string {
	return filepath.Join(baseDir(), "sessions.db")
}

// DefaultWorkspaceDir returns the default agent workspace location.
func DefaultWorkspaceDir() string {
	return filepath.Join(baseDir(), "workspace")
}
