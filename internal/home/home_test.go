package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-biblio")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-biblio" {
			t.Errorf("expected path /tmp/test-biblio, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-biblio")

	t.Run("BooksPath", func(t *testing.T) {
		expected := "/tmp/test-biblio/books"
		if dir.BooksPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.BooksPath())
		}
	})

	t.Run("BookArchivePath", func(t *testing.T) {
		expected := "/tmp/test-biblio/books/marsh-king.epub"
		if dir.BookArchivePath("marsh-king.epub") != expected {
			t.Errorf("expected %s, got %s", expected, dir.BookArchivePath("marsh-king.epub"))
		}
	})

	t.Run("StagingPath", func(t *testing.T) {
		expected := "/tmp/test-biblio/staging"
		if dir.StagingPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.StagingPath())
		}
	})

	t.Run("PostgresDataPath", func(t *testing.T) {
		expected := "/tmp/test-biblio/postgres"
		if dir.PostgresDataPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.PostgresDataPath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-biblio/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	biblioDir := filepath.Join(tmpDir, "biblio-test")

	dir, err := New(biblioDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Directory shouldn't exist yet
	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	// Create it
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	// Now it should exist
	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	for _, sub := range []string{dir.BooksPath(), dir.StagingPath(), dir.PostgresDataPath()} {
		if _, err := os.Stat(sub); os.IsNotExist(err) {
			t.Errorf("%s should exist after EnsureExists", sub)
		}
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	// Config doesn't exist
	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	// Create a config file
	configPath := dir.ConfigPath()
	if err := os.WriteFile(configPath, []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Now it should exist
	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}
