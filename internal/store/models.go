package store

// Author is a persisted author record. Identity is the unique name.
type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AuthorInfo is an author row as returned by the author listing, with the
// number of books referencing it.
type AuthorInfo struct {
	Author
	BooksCount int `json:"books_count"`
}

// AuthorBooks is an author with all of their books.
type AuthorBooks struct {
	Author
	Books []BookRef `json:"books"`
}

// BookRef identifies a book without its author or chapters.
type BookRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Book is a persisted book record. Path is the retained archive file name;
// it is internal and never serialized into responses.
type Book struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"-"`
	Author Author `json:"author"`
}

// BookChapters is a book with its ordered chapter listing.
type BookChapters struct {
	Book
	Chapters []Chapter `json:"chapters"`
}

// Chapter is a chapter row as exposed by the book detail endpoint. The
// extracted text is fetched separately by the chapter text endpoint.
type Chapter struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// ChapterRef locates a chapter's content fragment inside the source
// archive, for the live-scan search strategy.
type ChapterRef struct {
	Number int
	Href   string
}

// SearchHit is one search result: the chapter number and a snippet with
// the matched terms wrapped in << >> markers.
type SearchHit struct {
	ChapterNumber int    `json:"chapter_number"`
	Snippet       string `json:"snippet"`
}

// NewBook carries everything ingestion persists in one transaction.
type NewBook struct {
	Name       string
	Path       string
	AuthorName string
	Chapters   []NewChapter
}

// NewChapter is one extracted chapter ready for persistence.
type NewChapter struct {
	Number int
	Name   string
	Href   string
	Text   string
}
