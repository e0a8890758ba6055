package search

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"biblio/internal/store"
)

const scanContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const scanOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Дочь болотного царя</dc:title>
    <dc:creator>Карен Дионне</dc:creator>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const scanNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Пролог</text></navLabel>
      <content src="ch1.xhtml"/>
    </navPoint>
    <navPoint id="n2" playOrder="2">
      <navLabel><text>Глава 1</text></navLabel>
      <content src="ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const scanChapter1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
<p>Болото тянулось до самого горизонта.</p>
<p>Ничто не нарушало тишину.</p>
</body></html>`

const scanChapter2 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
<p>Хелена выросла на болоте. Отец научил Хелену охотиться.</p>
<p>Много лет спустя Хелена вспоминала те дни.</p>
</body></html>`

func writeArchive(t *testing.T, dir, name string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"META-INF/container.xml": scanContainerXML,
		"OEBPS/content.opf":      scanOPF,
		"OEBPS/toc.ncx":          scanNCX,
		"OEBPS/ch1.xhtml":        scanChapter1,
		"OEBPS/ch2.xhtml":        scanChapter2,
	}
	for path, content := range files {
		w, err := zw.Create(path)
		if err != nil {
			t.Fatalf("creating %s: %v", path, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive file: %v", err)
	}
	return path
}

type fakeRepo struct {
	book *store.Book
	refs []store.ChapterRef
	err  error
}

func (f *fakeRepo) GetBookInfo(ctx context.Context, bookID int) (*store.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.book, nil
}

func (f *fakeRepo) ChapterRefs(ctx context.Context, bookID int) ([]store.ChapterRef, error) {
	return f.refs, nil
}

type dirStub struct {
	root string
}

func (d dirStub) BookArchivePath(fileName string) string {
	return filepath.Join(d.root, fileName)
}

func TestLivescan_Search(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "marsh-king.epub")

	repo := &fakeRepo{
		book: &store.Book{ID: 1, Name: "Дочь болотного царя", Path: "marsh-king.epub"},
		refs: []store.ChapterRef{
			{Number: 0, Href: "OEBPS/ch1.xhtml"},
			{Number: 1, Href: "OEBPS/ch2.xhtml"},
		},
	}
	s := NewLivescan(repo, dirStub{root: dir})
	ctx := context.Background()

	t.Run("finds matches in reading order", func(t *testing.T) {
		hits, err := s.Search(ctx, 1, "болот")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("got %d hits, want 2", len(hits))
		}
		if hits[0].ChapterNumber != 0 || hits[1].ChapterNumber != 1 {
			t.Errorf("hits out of order: %+v", hits)
		}
		if !strings.Contains(hits[0].Snippet, "<<Болот>>") {
			t.Errorf("snippet %q missing highlighted match", hits[0].Snippet)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		hits, err := s.Search(ctx, 1, "хелена")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("got %d hits, want 1", len(hits))
		}
		if hits[0].ChapterNumber != 1 {
			t.Errorf("ChapterNumber = %d, want 1", hits[0].ChapterNumber)
		}
		if !strings.Contains(hits[0].Snippet, "<<Хелена>>") {
			t.Errorf("snippet %q missing highlighted match", hits[0].Snippet)
		}
	})

	t.Run("at most two fragments per chapter", func(t *testing.T) {
		hits, err := s.Search(ctx, 1, "Хелена")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("got %d hits, want 1", len(hits))
		}
		if n := strings.Count(hits[0].Snippet, "<<"); n != 2 {
			t.Errorf("got %d fragments, want 2: %q", n, hits[0].Snippet)
		}
	})

	t.Run("metacharacters are significant", func(t *testing.T) {
		hits, err := s.Search(ctx, 1, "боло.о")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("got %d hits, want 1", len(hits))
		}
		if hits[0].ChapterNumber != 0 {
			t.Errorf("ChapterNumber = %d, want 0", hits[0].ChapterNumber)
		}
		if !strings.Contains(hits[0].Snippet, "<<Болото>>") {
			t.Errorf("snippet %q missing highlighted match", hits[0].Snippet)
		}
	})

	t.Run("malformed pattern", func(t *testing.T) {
		_, err := s.Search(ctx, 1, "болот(")
		var invalid *InvalidQueryError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidQueryError, got %v", err)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		hits, err := s.Search(ctx, 1, "космонавтика")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("got %d hits, want 0", len(hits))
		}
	})

	t.Run("missing book propagates", func(t *testing.T) {
		missing := NewLivescan(&fakeRepo{err: &store.BookNotFoundError{ID: 7}}, dirStub{root: dir})
		_, err := missing.Search(ctx, 7, "болото")
		var notFound *store.BookNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected BookNotFoundError, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Search(cancelled, 1, "болото"); err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

func TestIndexed_MissingBook(t *testing.T) {
	repo := &fakeIndexedRepo{err: &store.BookNotFoundError{ID: 3}}
	s := NewIndexed(repo)

	_, err := s.Search(context.Background(), 3, "болото")
	var notFound *store.BookNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected BookNotFoundError, got %v", err)
	}
	if repo.searched {
		t.Error("should not query the index when the book is missing")
	}
}

type fakeIndexedRepo struct {
	err      error
	hits     []store.SearchHit
	searched bool
}

func (f *fakeIndexedRepo) GetBookInfo(ctx context.Context, bookID int) (*store.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &store.Book{ID: bookID}, nil
}

func (f *fakeIndexedRepo) SearchChapters(ctx context.Context, bookID int, query string) ([]store.SearchHit, error) {
	f.searched = true
	return f.hits, nil
}
