package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ResolveDataRoot returns the absolute path to the videomemory data directory.
// VIDEOMEMORY_DATA_ROOT overrides the platform default.
func ResolveDataRoot() string {
	if root := os.Getenv("VIDEOMEMORY_DATA_ROOT"); root != "" {
		return root
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("ProgramData")
		if base == "" {
			base = `C:\ProgramData`
		}
		return filepath.Join(base, "videomemory")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "videomemory-data"
		}
		return filepath.Join(home, "Library", "Application Support", "videomemory")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "videomemory")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "videomemory-data"
		}
		return filepath.Join(home, ".local", "share", "videomemory")
	}
}

// ResolveDBPath returns the SQLite database file path.
func ResolveDBPath() string {
	return filepath.Join(ResolveDataRoot(), "db", "videomemory.db")
}

// ResolveConfigPath returns the configuration file path, preferring customPath.
func ResolveConfigPath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	return filepath.Join(ResolveDataRoot(), "config", "default.yaml")
}

// ResolveEnvPath returns the .env file path inside the data root.
func ResolveEnvPath() string {
	return filepath.Join(ResolveDataRoot(), ".env")
}

// EnsureDirs creates the standard data subdirectories if they don't exist.
func EnsureDirs() error {
	dataRoot := ResolveDataRoot()
	subdirs := []string{
		"config",
		"logs",
		"db",
		"tmp",
	}

	for _, sub := range subdirs {
		path := filepath.Join(dataRoot, sub)
		if err := os.MkdirAll(path, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}
	return nil
}
