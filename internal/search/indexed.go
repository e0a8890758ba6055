package search

import (
	"context"

	"biblio/internal/store"
)

// indexedRepo is the slice of the repository the indexed strategy uses.
type indexedRepo interface {
	GetBookInfo(ctx context.Context, bookID int) (*store.Book, error)
	SearchChapters(ctx context.Context, bookID int, query string) ([]store.SearchHit, error)
}

// Indexed searches via the database's full-text index.
type Indexed struct {
	repo indexedRepo
}

// NewIndexed returns an index-backed searcher.
func NewIndexed(repo indexedRepo) *Indexed {
	return &Indexed{repo: repo}
}

// Search verifies the book exists and queries the full-text index.
func (s *Indexed) Search(ctx context.Context, bookID int, query string) ([]store.SearchHit, error) {
	if _, err := s.repo.GetBookInfo(ctx, bookID); err != nil {
		return nil, err
	}
	return s.repo.SearchChapters(ctx, bookID, query)
}
