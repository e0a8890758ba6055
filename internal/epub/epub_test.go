package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

const containerXMLFixture = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const opfFixture = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata>
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

const ncxFixture = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>
        Пролог
      </text></navLabel>
      <content src="ch1.xhtml#s1"/>
    </navPoint>
    <navPoint id="np2" playOrder="2">
      <navLabel><text>Глава 1</text></navLabel>
      <content src="ch1.xhtml#s2"/>
      <navPoint id="np3" playOrder="3">
        <navLabel><text>Глава 2</text></navLabel>
        <content src="ch2.xhtml#s1"/>
      </navPoint>
    </navPoint>
  </navMap>
</ncx>`

const ch1Fixture = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
  <div id="s1">
    <h1>Пролог</h1>
    <p>Первый   абзац пролога.</p>


    <p>Второй абзац.</p>
  </div>
  <div id="s2">
    <p>Начало главы.</p>
  </div>
</body></html>`

const ch2Fixture = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
  <div id="s1"><p>Текст второй главы.</p></div>
</body></html>`

// buildArchive zips the given files and opens them as an Archive.
func buildArchive(t *testing.T, files map[string]string) *Archive {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	a, err := OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "fixture.epub")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	return a
}

func fixtureFiles() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": containerXMLFixture,
		"OEBPS/content.opf":      opfFixture,
		"OEBPS/toc.ncx":          ncxFixture,
		"OEBPS/ch1.xhtml":        ch1Fixture,
		"OEBPS/ch2.xhtml":        ch2Fixture,
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("/nonexistent/book.epub")
	if !errors.Is(err, ErrArchiveNotFound) {
		t.Errorf("expected ErrArchiveNotFound, got %v", err)
	}
}

func TestOpenReader_NotAZip(t *testing.T) {
	data := []byte("this is not a zip file")
	_, err := OpenReader(bytes.NewReader(data), int64(len(data)), "junk.epub")
	var malformed *MalformedArchiveError
	if !errors.As(err, &malformed) {
		t.Errorf("expected MalformedArchiveError, got %v", err)
	}
}

func TestOpenReader_Metadata(t *testing.T) {
	a := buildArchive(t, fixtureFiles())
	defer a.Close()

	if a.Title != "Дочь болотного царя" {
		t.Errorf("title = %q", a.Title)
	}
	if a.Creator != "Карен Дионне" {
		t.Errorf("creator = %q", a.Creator)
	}
}

func TestOpenReader_MissingMetadata(t *testing.T) {
	t.Run("no title", func(t *testing.T) {
		files := fixtureFiles()
		files["OEBPS/content.opf"] = strings.Replace(opfFixture, "<dc:title>Дочь болотного царя</dc:title>", "", 1)
		assertMalformedArchive(t, files)
	})

	t.Run("no creator", func(t *testing.T) {
		files := fixtureFiles()
		files["OEBPS/content.opf"] = strings.Replace(opfFixture, "<dc:creator>Карен Дионне</dc:creator>", "", 1)
		assertMalformedArchive(t, files)
	})

	t.Run("no navigation item", func(t *testing.T) {
		files := fixtureFiles()
		files["OEBPS/content.opf"] = strings.Replace(opfFixture, `toc="ncx"`, "", 1)
		assertMalformedArchive(t, files)
	})

	t.Run("no container.xml", func(t *testing.T) {
		files := fixtureFiles()
		delete(files, "META-INF/container.xml")
		assertMalformedArchive(t, files)
	})
}

func assertMalformedArchive(t *testing.T, files map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		w.Write([]byte(content))
	}
	zw.Close()

	_, err := OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "fixture.epub")
	var malformed *MalformedArchiveError
	if !errors.As(err, &malformed) {
		t.Errorf("expected MalformedArchiveError, got %v", err)
	}
}

func TestNavEntries_NCX(t *testing.T) {
	a := buildArchive(t, fixtureFiles())
	defer a.Close()

	entries, err := a.NavEntries()
	if err != nil {
		t.Fatalf("nav entries: %v", err)
	}

	want := []NavEntry{
		{Label: "Пролог", Href: "OEBPS/ch1.xhtml#s1"},
		{Label: "Глава 1", Href: "OEBPS/ch1.xhtml#s2"},
		{Label: "Глава 2", Href: "OEBPS/ch2.xhtml#s1"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestNavEntries_Deterministic(t *testing.T) {
	a := buildArchive(t, fixtureFiles())
	defer a.Close()

	first, err := a.NavEntries()
	if err != nil {
		t.Fatalf("nav entries: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := a.NavEntries()
		if err != nil {
			t.Fatalf("nav entries: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: %d entries, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Errorf("run %d entry %d = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

func TestNavEntries_NavDocument(t *testing.T) {
	files := fixtureFiles()
	files["OEBPS/content.opf"] = strings.Replace(opfFixture,
		`<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`,
		`<item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>`, 1)
	files["OEBPS/nav.xhtml"] = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"><body>
  <nav epub:type="toc">
    <ol>
      <li><a href="ch1.xhtml#s1">Пролог</a></li>
      <li><a href="ch1.xhtml#s2">Глава 1</a>
        <ol><li><a href="ch2.xhtml#s1">Глава 2</a></li></ol>
      </li>
    </ol>
  </nav>
</body></html>`

	a := buildArchive(t, files)
	defer a.Close()

	entries, err := a.NavEntries()
	if err != nil {
		t.Fatalf("nav entries: %v", err)
	}
	want := []NavEntry{
		{Label: "Пролог", Href: "OEBPS/ch1.xhtml#s1"},
		{Label: "Глава 1", Href: "OEBPS/ch1.xhtml#s2"},
		{Label: "Глава 2", Href: "OEBPS/ch2.xhtml#s1"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestExtractChapter(t *testing.T) {
	a := buildArchive(t, fixtureFiles())
	defer a.Close()

	t.Run("fragment text with block newlines", func(t *testing.T) {
		text, err := a.ExtractChapter(NavEntry{Label: "Пролог", Href: "OEBPS/ch1.xhtml#s1"})
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		want := norm.NFKD.String("Пролог\nПервый   абзац пролога.\nВторой абзац.")
		if text != want {
			t.Errorf("text = %q, want %q", text, want)
		}
	})

	t.Run("second fragment in same item", func(t *testing.T) {
		text, err := a.ExtractChapter(NavEntry{Label: "Глава 1", Href: "OEBPS/ch1.xhtml#s2"})
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if text != "Начало главы." {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("missing fragment id", func(t *testing.T) {
		_, err := a.ExtractChapter(NavEntry{Href: "OEBPS/ch1.xhtml#nope"})
		var malformed *MalformedChapterError
		if !errors.As(err, &malformed) {
			t.Errorf("expected MalformedChapterError, got %v", err)
		}
	})

	t.Run("missing content item", func(t *testing.T) {
		_, err := a.ExtractChapter(NavEntry{Href: "OEBPS/ch9.xhtml#s1"})
		var malformed *MalformedChapterError
		if !errors.As(err, &malformed) {
			t.Errorf("expected MalformedChapterError, got %v", err)
		}
	})

	t.Run("href without fragment extracts whole body", func(t *testing.T) {
		text, err := a.ExtractChapter(NavEntry{Href: "OEBPS/ch2.xhtml"})
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if text != norm.NFKD.String("Текст второй главы.") {
			t.Errorf("text = %q", text)
		}
	})
}

func TestExtractChapter_NFKD(t *testing.T) {
	files := fixtureFiles()
	// U+FB01 LATIN SMALL LIGATURE FI decomposes to "fi" under NFKD.
	files["OEBPS/ch2.xhtml"] = `<html><body><div id="s1"><p>ﬁn</p></div></body></html>`

	a := buildArchive(t, files)
	defer a.Close()

	text, err := a.ExtractChapter(NavEntry{Href: "OEBPS/ch2.xhtml#s1"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "fin" {
		t.Errorf("text = %q, want %q", text, "fin")
	}
}
