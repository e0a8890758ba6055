package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"biblio/internal/epub"
	"biblio/internal/ingest"
	"biblio/internal/paginate"
	"biblio/internal/search"
	"biblio/internal/store"
	"biblio/internal/svcctx"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeStoreError maps domain errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var (
		bookNotFound    *store.BookNotFoundError
		authorNotFound  *store.AuthorNotFoundError
		chapterNotFound *store.ChapterNotFoundError
		duplicate       *store.DuplicateBookError
		pageOutOfRange  *paginate.PageOutOfRangeError
		badArchive      *epub.MalformedArchiveError
		badChapter      *epub.MalformedChapterError
		badQuery        *search.InvalidQueryError
	)

	switch {
	case errors.As(err, &bookNotFound),
		errors.As(err, &authorNotFound),
		errors.As(err, &chapterNotFound),
		errors.As(err, &pageOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &duplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &badArchive),
		errors.As(err, &badChapter),
		errors.As(err, &badQuery),
		errors.Is(err, ingest.ErrUnsupportedFile):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseID parses a positive integer path value.
func parseID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// parseChapterNumber parses a chapter number path value. Chapter
// numbering is zero-based, so 0 is valid.
func parseChapterNumber(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parsePagination reads page and limit query parameters, applying
// defaults and bounds. Reports ok=false when a value is not a number or
// out of range.
func parsePagination(r *http.Request) (page, limit int, ok bool) {
	page, limit = 1, paginate.DefaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		page = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < paginate.MinLimit || n > paginate.MaxLimit {
			return 0, 0, false
		}
		limit = n
	}
	return page, limit, true
}

// serveCached writes the cached response for this request if present.
// contentType must match what writeCached stored for the same route.
func serveCached(w http.ResponseWriter, r *http.Request, contentType string) bool {
	c := svcctx.CacheFrom(r.Context())
	if !c.Enabled() {
		return false
	}

	body, err := c.Get(r.Context(), c.Key(r.URL.Path, r.URL.Query()))
	if err != nil {
		return false
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return true
}

// writeCachedJSON writes a JSON response and stores it in the cache.
// Only successful responses go through here; errors are never cached.
func writeCachedJSON(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if c := svcctx.CacheFrom(r.Context()); c.Enabled() {
		if err := c.Set(r.Context(), c.Key(r.URL.Path, r.URL.Query()), body); err != nil {
			if log := svcctx.LoggerFrom(r.Context()); log != nil {
				log.Warn("failed to cache response", "path", r.URL.Path, "error", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// writeCachedText writes a plain text response and stores it in the cache.
func writeCachedText(w http.ResponseWriter, r *http.Request, text string) {
	body := []byte(text)

	if c := svcctx.CacheFrom(r.Context()); c.Enabled() {
		if err := c.Set(r.Context(), c.Key(r.URL.Path, r.URL.Query()), body); err != nil {
			if log := svcctx.LoggerFrom(r.Context()); log != nil {
				log.Warn("failed to cache response", "path", r.URL.Path, "error", err)
			}
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)
