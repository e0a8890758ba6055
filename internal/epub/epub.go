// Package epub reads packaged EPUB archives: title/creator metadata, the
// navigation (table of contents) document, and plain text extracted from
// chapter content fragments.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

// navKind identifies which flavor of navigation document an archive carries.
type navKind int

const (
	navNone navKind = iota
	navDocument        // EPUB 3 nav document (manifest property "nav")
	navNCX             // EPUB 2 NCX referenced by the spine toc attribute
)

// Archive is an opened EPUB package. It is not safe for concurrent use.
type Archive struct {
	Title   string
	Creator string

	zip     *zip.Reader
	closer  io.Closer
	files   map[string]*zip.File
	opfDir  string
	navPath string
	navKind navKind
}

// Open opens the EPUB archive at the given path. The caller must call
// Close when done.
func Open(p string) (*Archive, error) {
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, p)
		}
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	zrc, err := zip.OpenReader(p)
	if err != nil {
		return nil, &MalformedArchiveError{Path: p, Reason: "not a zip package", Err: err}
	}

	a, err := initArchive(&zrc.Reader, zrc, p)
	if err != nil {
		zrc.Close()
		return nil, err
	}
	return a, nil
}

// OpenReader creates an Archive from an io.ReaderAt with the given size.
// The caller keeps ownership of r.
func OpenReader(r io.ReaderAt, size int64, name string) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &MalformedArchiveError{Path: name, Reason: "not a zip package", Err: err}
	}
	return initArchive(zr, nil, name)
}

// Close releases the underlying file when the Archive was created via Open.
// It is idempotent.
func (a *Archive) Close() error {
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}

// --- container.xml and OPF decoding ---

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Titles   []string `xml:"title"`
	Creators []string `xml:"creator"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc string `xml:"toc,attr"`
}

func initArchive(zr *zip.Reader, closer io.Closer, name string) (*Archive, error) {
	a := &Archive{
		zip:    zr,
		closer: closer,
		files:  make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if _, ok := a.files[f.Name]; !ok {
			a.files[f.Name] = f
		}
	}

	opfPath, err := a.opfPath(name)
	if err != nil {
		return nil, err
	}
	a.opfDir = path.Dir(opfPath)

	opfData, err := a.readFile(opfPath)
	if err != nil {
		return nil, &MalformedArchiveError{Path: name, Reason: "OPF package document missing", Err: err}
	}

	var pkg opfPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, &MalformedArchiveError{Path: name, Reason: "OPF package document unparsable", Err: err}
	}

	if len(pkg.Metadata.Titles) == 0 || strings.TrimSpace(pkg.Metadata.Titles[0]) == "" {
		return nil, &MalformedArchiveError{Path: name, Reason: "title metadata absent"}
	}
	if len(pkg.Metadata.Creators) == 0 || strings.TrimSpace(pkg.Metadata.Creators[0]) == "" {
		return nil, &MalformedArchiveError{Path: name, Reason: "creator metadata absent"}
	}
	a.Title = strings.TrimSpace(pkg.Metadata.Titles[0])
	a.Creator = strings.TrimSpace(pkg.Metadata.Creators[0])

	if err := a.locateNav(pkg, name); err != nil {
		return nil, err
	}

	return a, nil
}

// opfPath resolves META-INF/container.xml to the package document path.
func (a *Archive) opfPath(name string) (string, error) {
	data, err := a.readFile("META-INF/container.xml")
	if err != nil {
		return "", &MalformedArchiveError{Path: name, Reason: "META-INF/container.xml missing", Err: err}
	}

	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", &MalformedArchiveError{Path: name, Reason: "container.xml unparsable", Err: err}
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return "", &MalformedArchiveError{Path: name, Reason: "container.xml names no rootfile"}
	}
	return c.Rootfiles[0].FullPath, nil
}

// locateNav finds the navigation document: the manifest item flagged with
// the "nav" property, falling back to the NCX named by the spine toc
// attribute for EPUB 2 archives.
func (a *Archive) locateNav(pkg opfPackage, name string) error {
	for _, item := range pkg.Manifest.Items {
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "nav" {
				a.navPath = a.resolveOPF(item.Href)
				a.navKind = navDocument
				return nil
			}
		}
	}

	if pkg.Spine.Toc != "" {
		for _, item := range pkg.Manifest.Items {
			if item.ID == pkg.Spine.Toc {
				a.navPath = a.resolveOPF(item.Href)
				a.navKind = navNCX
				return nil
			}
		}
	}

	return &MalformedArchiveError{Path: name, Reason: "no navigation document present"}
}

// resolveOPF resolves an href relative to the OPF directory.
func (a *Archive) resolveOPF(href string) string {
	if a.opfDir == "." {
		return href
	}
	return path.Join(a.opfDir, href)
}

var errFileNotFound = errors.New("file not found in archive")

// readFile reads an archive item by its zip-internal path. Lookup falls
// back to case-insensitive matching for sloppily packaged archives.
func (a *Archive) readFile(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		lower := strings.ToLower(name)
		for n, zf := range a.files {
			if strings.ToLower(n) == lower {
				f = zf
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", errFileNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
