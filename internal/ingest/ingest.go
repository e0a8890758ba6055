// Package ingest handles book ingestion from uploaded EPUB files.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"biblio/internal/epub"
	"biblio/internal/home"
	"biblio/internal/store"
)

// ErrUnsupportedFile is returned for uploads that are not .epub files.
var ErrUnsupportedFile = errors.New("only .epub files are supported")

// repository is the slice of the store ingestion writes to.
type repository interface {
	CreateBook(ctx context.Context, book store.NewBook) (int, error)
}

// flusher invalidates cached responses after the library changes.
type flusher interface {
	Flush(ctx context.Context) error
}

// Service runs the ingestion pipeline: stage the upload, parse the
// archive, extract every chapter, persist the book, then retain the
// archive in the books directory.
type Service struct {
	repo   repository
	home   *home.Dir
	cache  flusher
	logger *slog.Logger
}

// New creates an ingestion service.
func New(repo repository, homeDir *home.Dir, cache flusher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, home: homeDir, cache: cache, logger: logger}
}

// Result describes a successfully ingested book.
type Result struct {
	BookID   int    `json:"id"`
	Title    string `json:"name"`
	Author   string `json:"author"`
	Chapters int    `json:"chapters"`
}

// IngestUpload stages the uploaded archive, extracts its chapters, and
// persists the book. The staged file is removed whether ingestion
// succeeds or fails; on success the archive is moved into the books
// directory under a generated name.
func (s *Service) IngestUpload(ctx context.Context, fileName string, upload io.Reader) (*Result, error) {
	if !strings.EqualFold(filepath.Ext(fileName), ".epub") {
		return nil, fmt.Errorf("%q: %w", fileName, ErrUnsupportedFile)
	}

	storedName := uuid.NewString() + ".epub"
	stagedPath := filepath.Join(s.home.StagingPath(), storedName)

	if err := writeFile(stagedPath, upload); err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer os.Remove(stagedPath)

	archive, err := epub.Open(stagedPath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	entries, err := archive.NavEntries()
	if err != nil {
		return nil, err
	}

	book := store.NewBook{
		Name:       archive.Title,
		Path:       storedName,
		AuthorName: archive.Creator,
	}
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := archive.ExtractChapter(entry)
		if err != nil {
			return nil, err
		}
		book.Chapters = append(book.Chapters, store.NewChapter{
			Number: i,
			Name:   entry.Label,
			Href:   entry.Href,
			Text:   text,
		})
	}

	bookID, err := s.repo.CreateBook(ctx, book)
	if err != nil {
		return nil, err
	}

	if err := os.Rename(stagedPath, s.home.BookArchivePath(storedName)); err != nil {
		return nil, fmt.Errorf("failed to retain archive: %w", err)
	}

	if err := s.cache.Flush(ctx); err != nil {
		s.logger.Warn("failed to flush cache after ingest", "error", err)
	}

	s.logger.Info("ingest complete",
		"book_id", bookID,
		"title", book.Name,
		"author", book.AuthorName,
		"chapters", len(book.Chapters),
	)

	return &Result{
		BookID:   bookID,
		Title:    book.Name,
		Author:   book.AuthorName,
		Chapters: len(book.Chapters),
	}, nil
}

// IngestFile ingests an EPUB already on disk, for command line use.
func (s *Service) IngestFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return s.IngestUpload(ctx, filepath.Base(path), f)
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
