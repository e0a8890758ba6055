package epub

import (
	"errors"
	"fmt"
)

// ErrArchiveNotFound indicates the archive locator does not resolve to an
// existing file.
var ErrArchiveNotFound = errors.New("epub archive not found")

// MalformedArchiveError indicates the file cannot be read as a packaged
// EPUB: broken zip/OPF, missing navigation document, or missing
// title/creator metadata.
type MalformedArchiveError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed epub archive %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed epub archive %s: %s", e.Path, e.Reason)
}

func (e *MalformedArchiveError) Unwrap() error { return e.Err }

// MalformedChapterError indicates a navigation entry points at a content
// fragment that cannot be resolved inside the archive.
type MalformedChapterError struct {
	Href   string
	Reason string
}

func (e *MalformedChapterError) Error() string {
	return fmt.Sprintf("malformed chapter %s: %s", e.Href, e.Reason)
}
