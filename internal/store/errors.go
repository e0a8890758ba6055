package store

import "fmt"

// BookNotFoundError indicates no book exists with the requested id.
type BookNotFoundError struct {
	ID int
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book with id %d doesn't exist", e.ID)
}

// AuthorNotFoundError indicates no author exists with the requested id.
type AuthorNotFoundError struct {
	ID int
}

func (e *AuthorNotFoundError) Error() string {
	return fmt.Sprintf("author with id %d doesn't exist", e.ID)
}

// ChapterNotFoundError indicates the book exists but has no chapter with
// the requested number.
type ChapterNotFoundError struct {
	BookID int
	Number int
}

func (e *ChapterNotFoundError) Error() string {
	return fmt.Sprintf("book %d has no chapter %d", e.BookID, e.Number)
}

// DuplicateBookError indicates a book with the same name or archive path
// has already been ingested.
type DuplicateBookError struct {
	Name string
}

func (e *DuplicateBookError) Error() string {
	return fmt.Sprintf("book %q already exists", e.Name)
}
