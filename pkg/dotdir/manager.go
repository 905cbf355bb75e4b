// Package dotdir manages the .strata/ and ~/.strata directories that hold the
// config file and the local SQLite store.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the strata directory.
	dirName = ".strata"

	// DatabaseFile is the default local store file name.
	DatabaseFile = "strata.sqlite"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .strata/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.strata/ dir
//  3. Home ~/.strata/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating strata directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DatabasePath resolves the local store path. An explicit path wins;
// otherwise the store lives in the resolved .strata/ directory.
func (m *Manager) DatabasePath(explicit, overrideDir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFile), nil
}

// InitLocal creates ./.strata/ in the working directory. It reports whether
// the directory was created by this call.
func (m *Manager) InitLocal() (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if m.localDirExists() {
		return dir, false, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating .strata directory: %w", err)
	}
	return dir, true, nil
}

// localDirExists checks whether a .strata/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
