// Package search finds phrases inside a single book's chapters. Two
// strategies exist: indexed search delegates to Postgres full-text
// search, livescan re-reads the EPUB archive on every query.
package search

import (
	"context"
	"strconv"

	"biblio/internal/store"
)

// MinQueryLength is the shortest accepted search query, in runes.
const MinQueryLength = 3

// InvalidQueryError indicates the query is not usable as a search
// pattern. Livescan treats the query as a regular expression, so a
// malformed pattern is a caller error, not a server fault.
type InvalidQueryError struct {
	Query string
	Err   error
}

func (e *InvalidQueryError) Error() string {
	return "invalid search query " + strconv.Quote(e.Query) + ": " + e.Err.Error()
}

func (e *InvalidQueryError) Unwrap() error { return e.Err }

// Searcher finds query matches inside one book. Implementations return
// matching chapters in reading order, each hit carrying a snippet with
// the matched text wrapped in << >> markers.
type Searcher interface {
	Search(ctx context.Context, bookID int, query string) ([]store.SearchHit, error)
}

// maxFragments bounds snippet fragments per chapter, matching the
// indexed strategy's ts_headline settings.
const maxFragments = 2
