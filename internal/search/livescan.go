package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"biblio/internal/epub"
	"biblio/internal/store"
)

// snippetRadius is the rough amount of context kept on each side of a
// match, in bytes, before trimming to word boundaries.
const snippetRadius = 60

// livescanRepo is the slice of the repository the livescan strategy uses.
type livescanRepo interface {
	GetBookInfo(ctx context.Context, bookID int) (*store.Book, error)
	ChapterRefs(ctx context.Context, bookID int) ([]store.ChapterRef, error)
}

// ArchiveResolver maps a stored archive file name to its path on disk.
type ArchiveResolver interface {
	BookArchivePath(fileName string) string
}

// Livescan searches by re-reading the EPUB archive on every query.
// The query is compiled as a case-insensitive regular expression over
// extracted chapter text, so metacharacters are significant where the
// indexed strategy sees a literal phrase.
type Livescan struct {
	repo     livescanRepo
	archives ArchiveResolver
}

// NewLivescan returns an archive-scanning searcher.
func NewLivescan(repo livescanRepo, archives ArchiveResolver) *Livescan {
	return &Livescan{repo: repo, archives: archives}
}

// Search extracts every chapter of the book and scans it for the query.
func (s *Livescan) Search(ctx context.Context, bookID int, query string) ([]store.SearchHit, error) {
	re, err := regexp.Compile(`(?i)` + query)
	if err != nil {
		return nil, &InvalidQueryError{Query: query, Err: err}
	}

	book, err := s.repo.GetBookInfo(ctx, bookID)
	if err != nil {
		return nil, err
	}

	refs, err := s.repo.ChapterRefs(ctx, bookID)
	if err != nil {
		return nil, err
	}

	archive, err := epub.Open(s.archives.BookArchivePath(book.Path))
	if err != nil {
		return nil, fmt.Errorf("opening archive for book %d: %w", bookID, err)
	}
	defer archive.Close()

	hits := []store.SearchHit{}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := archive.ExtractChapter(epub.NavEntry{Href: ref.Href})
		if err != nil {
			return nil, fmt.Errorf("extracting chapter %d: %w", ref.Number, err)
		}

		locs := re.FindAllStringIndex(text, maxFragments)
		if len(locs) == 0 {
			continue
		}

		fragments := make([]string, 0, len(locs))
		for _, loc := range locs {
			fragments = append(fragments, highlight(text, loc[0], loc[1]))
		}
		hits = append(hits, store.SearchHit{
			ChapterNumber: ref.Number,
			Snippet:       strings.Join(fragments, " ... "),
		})
	}
	return hits, nil
}

// highlight wraps the match in << >> markers and keeps surrounding
// context trimmed to word boundaries.
func highlight(text string, start, end int) string {
	lo := start - snippetRadius
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo++
	}
	if sp := strings.IndexByte(text[lo:start], ' '); sp >= 0 && lo > 0 {
		lo += sp + 1
	}

	hi := end + snippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi--
	}
	if sp := strings.LastIndexByte(text[end:hi], ' '); sp >= 0 && hi < len(text) {
		hi = end + sp
	}

	snippet := text[lo:start] + "<<" + text[start:end] + ">>" + text[end:hi]
	return strings.Join(strings.Fields(snippet), " ")
}
