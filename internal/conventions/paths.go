package conventions

import (
	"path/filepath"

	"k8s.io/client-go/util/homedir"
)

const (
	// DefaultDataDir is the default dlsync data directory name (relative to home).
	DefaultDataDir = ".dlsync"
	// JournalFile is the filename of the SQLite operation journal.
	JournalFile = "journal.db"
)

// DataDir returns the default data directory under the user home.
func DataDir() string {
	return filepath.Join(homedir.HomeDir(), DefaultDataDir)
}

// JournalPath returns the operation journal path inside a data directory.
func JournalPath(dataDir string) string {
	return filepath.Join(dataDir, JournalFile)
}
