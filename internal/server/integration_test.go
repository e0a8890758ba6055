package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"biblio/internal/config"
	"biblio/internal/home"
	"biblio/internal/ingest"
	"biblio/internal/paginate"
	"biblio/internal/postgres"
	"biblio/internal/server/endpoints"
	"biblio/internal/store"
	"biblio/internal/testutil"
)

const testAdminPassword = "integration-secret"

// testServer bundles a running server with its shutdown plumbing.
type testServer struct {
	server *Server
	cancel context.CancelFunc
	done   chan error
}

func (s *testServer) stop(t *testing.T) {
	t.Helper()
	s.cancel()
	if err := testutil.WaitForShutdown(s.done, 60*time.Second); err != nil {
		t.Fatalf("server did not shut down: %v", err)
	}
}

// startTestServer writes a config file, starts a server with a managed
// Postgres container, and waits until the database is healthy.
func startTestServer(t *testing.T, ctx context.Context, cfg testutil.ServerConfig, language string) *testServer {
	t.Helper()

	configYAML := fmt.Sprintf(`server:
  host: %q
  port: %q
admin:
  username: admin
  password: %q
search:
  strategy: indexed
  language: %q
`, cfg.Host, cfg.Port, testAdminPassword, language)

	if err := os.WriteFile(cfg.ConfigFile, []byte(configYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	configMgr, err := config.NewManager(cfg.ConfigFile)
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}

	dir, err := home.New(cfg.HomePath)
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	srv, err := New(Config{
		Host: cfg.Host,
		Port: cfg.Port,
		Home: dir,
		PostgresConfig: postgres.DockerConfig{
			ContainerName: cfg.PostgresConfig.ContainerName,
			HostPort:      cfg.PostgresConfig.HostPort,
			Password:      cfg.PostgresConfig.Password,
			Labels:        cfg.PostgresConfig.Labels,
		},
		ConfigManager: configMgr,
		Logger:        cfg.Logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(serverCtx)
	}()

	if err := testutil.WaitForServer(cfg.URL(), 90*time.Second); err != nil {
		cancel()
		t.Fatalf("server did not start: %v", err)
	}

	return &testServer{server: srv, cancel: cancel, done: done}
}

const integContainer = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const integOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Time Machine</dc:title>
    <dc:creator>H. G. Wells</dc:creator>
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

const integNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Introduction</text></navLabel>
      <content src="ch1.xhtml"/>
    </navPoint>
    <navPoint id="n2" playOrder="2">
      <navLabel><text>The Machine</text></navLabel>
      <content src="ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const integCh1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
<p>The Time Traveller was expounding a recondite matter to us.</p>
</body></html>`

const integCh2 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
<p>The machine swayed and the laboratory vanished around him.</p>
</body></html>`

func integrationEPUB(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"META-INF/container.xml": integContainer,
		"OEBPS/content.opf":      integOPF,
		"OEBPS/toc.ncx":          integNCX,
		"OEBPS/ch1.xhtml":        integCh1,
		"OEBPS/ch2.xhtml":        integCh2,
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
	return buf.Bytes()
}

func uploadEPUB(t *testing.T, url, username, password string, archive []byte) (*http.Response, []byte) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "book.epub")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(archive); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing form: %v", err)
	}

	req, err := http.NewRequest("POST", url+"/api/books", &body)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if username != "" {
		req.SetBasicAuth(username, password)
	}

	resp, err := testutil.HTTPClient().Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return resp, data
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()

	resp, err := testutil.HTTPClient().Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp
}

// TestServer_LibraryAPI exercises the full upload, browse, and search flow
// against a real managed Postgres container.
func TestServer_LibraryAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testutil.NewServerConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	srv := startTestServer(t, ctx, cfg, "english")
	defer srv.stop(t)

	archive := integrationEPUB(t)
	var bookID int

	t.Run("upload requires credentials", func(t *testing.T) {
		resp, _ := uploadEPUB(t, cfg.URL(), "", "", archive)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("upload", func(t *testing.T) {
		resp, data := uploadEPUB(t, cfg.URL(), "admin", testAdminPassword, archive)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
		}

		var result ingest.Result
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("decoding result: %v", err)
		}
		if result.Title != "The Time Machine" || result.Author != "H. G. Wells" {
			t.Errorf("unexpected metadata: %+v", result)
		}
		if result.Chapters != 2 {
			t.Errorf("expected 2 chapters, got %d", result.Chapters)
		}
		bookID = result.BookID
	})

	t.Run("duplicate upload rejected", func(t *testing.T) {
		resp, data := uploadEPUB(t, cfg.URL(), "admin", testAdminPassword, archive)
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", resp.StatusCode, data)
		}
	})

	t.Run("list books", func(t *testing.T) {
		var page paginate.Page[store.Book]
		resp := getJSON(t, cfg.URL()+"/api/books", &page)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if len(page.Items) != 1 || page.Items[0].Name != "The Time Machine" {
			t.Fatalf("unexpected books: %+v", page.Items)
		}
		if page.Items[0].Author.Name != "H. G. Wells" {
			t.Errorf("unexpected author: %+v", page.Items[0].Author)
		}
	})

	t.Run("list authors", func(t *testing.T) {
		var page paginate.Page[store.AuthorInfo]
		resp := getJSON(t, cfg.URL()+"/api/authors", &page)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if len(page.Items) != 1 || page.Items[0].BooksCount != 1 {
			t.Fatalf("unexpected authors: %+v", page.Items)
		}
	})

	t.Run("get book with chapters", func(t *testing.T) {
		var book store.BookChapters
		resp := getJSON(t, fmt.Sprintf("%s/api/books/%d", cfg.URL(), bookID), &book)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if len(book.Chapters) != 2 {
			t.Fatalf("expected 2 chapters, got %+v", book.Chapters)
		}
		if book.Chapters[0].Name != "Introduction" || book.Chapters[0].Number != 0 {
			t.Errorf("unexpected first chapter: %+v", book.Chapters[0])
		}
		if book.Chapters[1].Number != 1 {
			t.Errorf("unexpected second chapter: %+v", book.Chapters[1])
		}
	})

	t.Run("chapter text", func(t *testing.T) {
		resp, err := testutil.HTTPClient().Get(fmt.Sprintf("%s/api/books/%d/chapters/1", cfg.URL(), bookID))
		if err != nil {
			t.Fatalf("chapter request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "laboratory vanished") {
			t.Errorf("unexpected chapter text: %q", body)
		}
	})

	t.Run("missing chapter is 404", func(t *testing.T) {
		resp := getJSON(t, fmt.Sprintf("%s/api/books/%d/chapters/9", cfg.URL(), bookID), nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("search finds highlighted matches", func(t *testing.T) {
		var result endpoints.SearchResponse
		resp := getJSON(t, fmt.Sprintf("%s/api/books/%d/search?query=machine", cfg.URL(), bookID), &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if len(result.Results) == 0 {
			t.Fatal("expected at least one hit")
		}
		if !strings.Contains(result.Results[0].Snippet, "<<") {
			t.Errorf("expected highlight markers in %q", result.Results[0].Snippet)
		}
	})

	t.Run("search without matches", func(t *testing.T) {
		var result endpoints.SearchResponse
		resp := getJSON(t, fmt.Sprintf("%s/api/books/%d/search?query=dinosaur", cfg.URL(), bookID), &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if len(result.Results) != 0 || result.TotalPages != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("short search query is 422", func(t *testing.T) {
		resp := getJSON(t, fmt.Sprintf("%s/api/books/%d/search?query=ab", cfg.URL(), bookID), nil)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.StatusCode)
		}
	})

	t.Run("archive retained in books directory", func(t *testing.T) {
		entries, err := os.ReadDir(srv.server.home.BooksPath())
		if err != nil {
			t.Fatalf("reading books dir: %v", err)
		}
		if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".epub") {
			t.Errorf("unexpected books dir contents: %v", entries)
		}
	})
}

// TestServer_ContextCancellation verifies the managed container stops when
// the server context is cancelled.
func TestServer_ContextCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testutil.NewServerConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	srv := startTestServer(t, ctx, cfg, "english")
	srv.stop(t)

	mgr, err := postgres.NewDockerManager(postgres.DockerConfig{
		ContainerName: cfg.PostgresConfig.ContainerName,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	defer mgr.Close()

	status, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}
	if status == postgres.StatusRunning {
		t.Error("postgres still running after cancellation")
		_ = mgr.Stop(ctx)
	}
}
