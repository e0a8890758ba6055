// Package paginate slices ordered result collections into pages. It is
// shared by the list endpoints and the search endpoint.
package paginate

import "fmt"

// Limit bounds for page sizes. Callers validate requested values against
// these before paginating.
const (
	DefaultLimit = 5
	MinLimit     = 1
	MaxLimit     = 100
)

// PageOutOfRangeError is returned when the requested page lies beyond the
// last available page. An empty collection has zero pages, so any page is
// out of range.
type PageOutOfRangeError struct {
	Page       int
	TotalPages int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d doesn't exist (total pages: %d)", e.Page, e.TotalPages)
}

// Page is the envelope every paginated response shares.
type Page[T any] struct {
	Items      []T `json:"items"`
	PageNumber int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// Paginate returns the slice [(page-1)*limit, page*limit) of items in
// their original order, plus the total page count ceil(len(items)/limit).
// page is 1-based. The total is computed before slicing, so a page past
// the end always fails rather than clamping to the last page.
func Paginate[T any](items []T, page, limit int) ([]T, int, error) {
	totalPages := (len(items) + limit - 1) / limit

	if page > totalPages {
		return nil, totalPages, &PageOutOfRangeError{Page: page, TotalPages: totalPages}
	}

	lo := (page - 1) * limit
	hi := min(page*limit, len(items))
	return items[lo:hi], totalPages, nil
}

// NewPage paginates items and wraps the result in the shared envelope.
func NewPage[T any](items []T, page, limit int) (Page[T], error) {
	sliced, totalPages, err := Paginate(items, page, limit)
	if err != nil {
		return Page[T]{}, err
	}
	if sliced == nil {
		sliced = []T{}
	}
	return Page[T]{
		Items:      sliced,
		PageNumber: page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}
