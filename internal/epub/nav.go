package epub

import (
	"bytes"
	"encoding/xml"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// NavEntry is one table-of-contents entry: a human-readable label and the
// content reference it points at (a "path#fragment" pair, path relative to
// the archive root). The slice index of an entry in NavEntries' result is
// the chapter number.
type NavEntry struct {
	Label string
	Href  string
}

// NavEntries parses the archive's navigation document and returns its
// entries flattened in document order. Nested sections keep their relative
// order, so repeated extraction of the same archive always yields the same
// numbering.
func (a *Archive) NavEntries() ([]NavEntry, error) {
	data, err := a.readFile(a.navPath)
	if err != nil {
		return nil, &MalformedArchiveError{Path: a.navPath, Reason: "navigation document unreadable", Err: err}
	}

	// Collapse whitespace runs (including newlines) before structural
	// parsing so pretty-printed markup does not leak into labels.
	data = []byte(strings.Join(strings.Fields(string(data)), " "))

	switch a.navKind {
	case navDocument:
		return a.parseNavDocument(data)
	default:
		return a.parseNCX(data)
	}
}

// --- NCX (EPUB 2) ---

type ncxRoot struct {
	XMLName xml.Name   `xml:"ncx"`
	NavMap  ncxNavMap  `xml:"navMap"`
}

type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

type ncxNavPoint struct {
	Label    ncxNavLabel   `xml:"navLabel"`
	Content  ncxContent    `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

type ncxNavLabel struct {
	Text string `xml:"text"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

func (a *Archive) parseNCX(data []byte) ([]NavEntry, error) {
	var doc ncxRoot
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedArchiveError{Path: a.navPath, Reason: "NCX unparsable", Err: err}
	}

	var entries []NavEntry
	navDir := path.Dir(a.navPath)
	var walk func(points []ncxNavPoint)
	walk = func(points []ncxNavPoint) {
		for _, np := range points {
			entries = append(entries, NavEntry{
				Label: strings.TrimSpace(np.Label.Text),
				Href:  resolveHref(navDir, strings.TrimSpace(np.Content.Src)),
			})
			walk(np.Children)
		}
	}
	walk(doc.NavMap.NavPoints)

	return entries, nil
}

// --- Nav document (EPUB 3) ---

func (a *Archive) parseNavDocument(data []byte) ([]NavEntry, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &MalformedArchiveError{Path: a.navPath, Reason: "nav document unparsable", Err: err}
	}

	toc := findTocNav(doc)
	if toc == nil {
		return nil, &MalformedArchiveError{Path: a.navPath, Reason: "nav document has no toc nav"}
	}

	var entries []NavEntry
	navDir := path.Dir(a.navPath)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "a" {
				entries = append(entries, NavEntry{
					Label: strings.TrimSpace(nodeText(c)),
					Href:  resolveHref(navDir, getAttr(c, "href")),
				})
				continue // anchor text already collected, skip descendants
			}
			walk(c)
		}
	}
	walk(toc)

	return entries, nil
}

// findTocNav returns the first <nav> element whose epub:type contains the
// "toc" token.
func findTocNav(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "nav" {
		for _, t := range strings.Fields(getAttr(n, "epub:type")) {
			if t == "toc" {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTocNav(c); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

// resolveHref resolves a content reference relative to the directory of
// the navigation document, keeping any #fragment suffix intact.
func resolveHref(dir, href string) string {
	if href == "" || dir == "." {
		return href
	}

	frag := ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		frag = href[i:]
		href = href[:i]
	}
	if href == "" {
		return frag
	}
	return path.Join(dir, href) + frag
}
