package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the biblio home directory.
	DefaultDirName = ".biblio"

	// BooksDirName is the subdirectory holding ingested EPUB archives.
	BooksDirName = "books"

	// StagingDirName is the subdirectory for uploads awaiting ingestion.
	StagingDirName = "staging"

	// PostgresDirName is the subdirectory for managed Postgres data.
	PostgresDirName = "postgres"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the biblio home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.biblio).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// BooksPath returns the directory holding ingested archives.
func (d *Dir) BooksPath() string {
	return filepath.Join(d.path, BooksDirName)
}

// BookArchivePath returns the full path of one ingested archive by its
// stored file name.
func (d *Dir) BookArchivePath(fileName string) string {
	return filepath.Join(d.BooksPath(), fileName)
}

// StagingPath returns the directory for uploads awaiting ingestion.
func (d *Dir) StagingPath() string {
	return filepath.Join(d.path, StagingDirName)
}

// PostgresDataPath returns the data directory for the managed Postgres
// container.
func (d *Dir) PostgresDataPath() string {
	return filepath.Join(d.path, PostgresDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.BooksPath(), d.StagingPath(), d.PostgresDataPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
