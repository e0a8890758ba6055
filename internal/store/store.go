package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pgUniqueViolation is the Postgres error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// Repository is the persistence surface the API and ingestion pipeline
// depend on. *Store is the Postgres implementation; tests substitute
// in-memory fakes.
type Repository interface {
	CreateBook(ctx context.Context, book NewBook) (int, error)
	ListAuthors(ctx context.Context) ([]AuthorInfo, error)
	GetAuthor(ctx context.Context, authorID int) (*AuthorBooks, error)
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, bookID int) (*BookChapters, error)
	GetBookInfo(ctx context.Context, bookID int) (*Book, error)
	GetChapterText(ctx context.Context, bookID, number int) (string, error)
	ChapterRefs(ctx context.Context, bookID int) ([]ChapterRef, error)
	SearchChapters(ctx context.Context, bookID int, query string) ([]SearchHit, error)
}

// Store is a Postgres-backed Repository built on a pgx connection pool.
type Store struct {
	pool       *pgxpool.Pool
	searchLang string
}

var _ Repository = (*Store)(nil)

// Connect opens a connection pool against dbURL, runs any pending schema
// migrations, and returns the ready store. searchLang names the Postgres
// text search configuration used for indexing and querying chapter text.
func Connect(ctx context.Context, dbURL, searchLang string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if err := runMigrations(dbURL); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, searchLang: searchLang}, nil
}

func runMigrations(dbURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("unable to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("unable to prepare migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateBook persists a book, its author, and all extracted chapters in a
// single transaction. The author is created on first use and reused by
// name afterwards. Returns the new book's id.
func (s *Store) CreateBook(ctx context.Context, book NewBook) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The no-op DO UPDATE makes RETURNING yield the existing row's id on
	// conflict, so concurrent ingests of the same author converge.
	var authorID int
	err = tx.QueryRow(ctx, `
		INSERT INTO authors (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, book.AuthorName).Scan(&authorID)
	if err != nil {
		return 0, fmt.Errorf("unable to upsert author: %w", err)
	}

	var bookID int
	err = tx.QueryRow(ctx, `
		INSERT INTO books (name, path, author_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, book.Name, book.Path, authorID).Scan(&bookID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, &DuplicateBookError{Name: book.Name}
		}
		return 0, fmt.Errorf("unable to insert book: %w", err)
	}

	for _, ch := range book.Chapters {
		_, err = tx.Exec(ctx, `
			INSERT INTO chapters (book_id, number, name, href, text)
			VALUES ($1, $2, $3, $4, $5)
		`, bookID, ch.Number, ch.Name, ch.Href, ch.Text)
		if err != nil {
			return 0, fmt.Errorf("unable to insert chapter %d: %w", ch.Number, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("unable to commit book: %w", err)
	}
	return bookID, nil
}

// ListAuthors returns all authors ordered by id, each with their book count.
func (s *Store) ListAuthors(ctx context.Context) ([]AuthorInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.name, count(b.id)
		FROM authors a
		LEFT JOIN books b ON b.author_id = a.id
		GROUP BY a.id, a.name
		ORDER BY a.id
	`)
	if err != nil {
		return nil, fmt.Errorf("unable to list authors: %w", err)
	}
	defer rows.Close()

	authors := []AuthorInfo{}
	for rows.Next() {
		var a AuthorInfo
		if err := rows.Scan(&a.ID, &a.Name, &a.BooksCount); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// GetAuthor returns one author with their books ordered by book id.
func (s *Store) GetAuthor(ctx context.Context, authorID int) (*AuthorBooks, error) {
	var a AuthorBooks
	err := s.pool.QueryRow(ctx, `
		SELECT id, name FROM authors WHERE id = $1
	`, authorID).Scan(&a.ID, &a.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &AuthorNotFoundError{ID: authorID}
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get author %d: %w", authorID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name FROM books WHERE author_id = $1 ORDER BY id
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("unable to list books for author %d: %w", authorID, err)
	}
	defer rows.Close()

	a.Books = []BookRef{}
	for rows.Next() {
		var b BookRef
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		a.Books = append(a.Books, b)
	}
	return &a, rows.Err()
}

// ListBooks returns all books ordered by id, each with its author.
func (s *Store) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.name, b.path, a.id, a.name
		FROM books b
		JOIN authors a ON a.id = b.author_id
		ORDER BY b.id
	`)
	if err != nil {
		return nil, fmt.Errorf("unable to list books: %w", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Name, &b.Path, &b.Author.ID, &b.Author.Name); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBookInfo returns one book with its author but without chapters.
func (s *Store) GetBookInfo(ctx context.Context, bookID int) (*Book, error) {
	var b Book
	err := s.pool.QueryRow(ctx, `
		SELECT b.id, b.name, b.path, a.id, a.name
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.id = $1
	`, bookID).Scan(&b.ID, &b.Name, &b.Path, &b.Author.ID, &b.Author.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &BookNotFoundError{ID: bookID}
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get book %d: %w", bookID, err)
	}
	return &b, nil
}

// GetBook returns one book with its author and chapter listing ordered by
// chapter number.
func (s *Store) GetBook(ctx context.Context, bookID int) (*BookChapters, error) {
	info, err := s.GetBookInfo(ctx, bookID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT number, name FROM chapters WHERE book_id = $1 ORDER BY number
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("unable to list chapters for book %d: %w", bookID, err)
	}
	defer rows.Close()

	book := BookChapters{Book: *info, Chapters: []Chapter{}}
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.Number, &c.Name); err != nil {
			return nil, err
		}
		book.Chapters = append(book.Chapters, c)
	}
	return &book, rows.Err()
}

// GetChapterText returns the extracted plain text of one chapter. The two
// not-found cases are distinguished so callers can report whether the book
// or only the chapter is missing.
func (s *Store) GetChapterText(ctx context.Context, bookID, number int) (string, error) {
	var text string
	err := s.pool.QueryRow(ctx, `
		SELECT text FROM chapters WHERE book_id = $1 AND number = $2
	`, bookID, number).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, infoErr := s.GetBookInfo(ctx, bookID); infoErr != nil {
			return "", infoErr
		}
		return "", &ChapterNotFoundError{BookID: bookID, Number: number}
	}
	if err != nil {
		return "", fmt.Errorf("unable to get chapter %d of book %d: %w", number, bookID, err)
	}
	return text, nil
}

// ChapterRefs returns the archive locations of a book's chapters ordered
// by chapter number.
func (s *Store) ChapterRefs(ctx context.Context, bookID int) ([]ChapterRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT number, href FROM chapters WHERE book_id = $1 ORDER BY number
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("unable to list chapter refs for book %d: %w", bookID, err)
	}
	defer rows.Close()

	refs := []ChapterRef{}
	for rows.Next() {
		var r ChapterRef
		if err := rows.Scan(&r.Number, &r.Href); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// SearchChapters runs a phrase search over one book's chapter text and
// returns matching chapters in reading order, each with a highlighted
// snippet. Matched terms are wrapped in << >> markers, with at most two
// fragments per chapter.
func (s *Store) SearchChapters(ctx context.Context, bookID int, query string) ([]SearchHit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT number,
		       ts_headline($1::regconfig, text, phraseto_tsquery($1::regconfig, $2),
		                   'MaxFragments=2, MaxWords=20, StartSel="<<", StopSel=">>"')
		FROM chapters
		WHERE book_id = $3
		  AND to_tsvector($1::regconfig, text) @@ phraseto_tsquery($1::regconfig, $2)
		ORDER BY number
	`, s.searchLang, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("unable to search book %d: %w", bookID, err)
	}
	defer rows.Close()

	hits := []SearchHit{}
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ChapterNumber, &h.Snippet); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
