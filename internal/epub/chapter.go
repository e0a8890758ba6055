package epub

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// blockTags are the elements that separate text blocks with a newline
// during extraction.
var blockTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Blockquote: true,
	atom.Hr:         true,
}

var (
	newlineRuns      = regexp.MustCompile(`\n+`)
	spacePaddedBreak = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

// ExtractChapter resolves a navigation entry to its content fragment and
// returns the fragment's plain text: descendant text with newlines between
// blocks, repeated newline runs collapsed, trimmed, and normalized with
// unicode compatibility decomposition.
func (a *Archive) ExtractChapter(entry NavEntry) (string, error) {
	itemPath, fragment := splitHref(entry.Href)
	if itemPath == "" {
		return "", &MalformedChapterError{Href: entry.Href, Reason: "empty content reference"}
	}

	data, err := a.readFile(itemPath)
	if err != nil {
		return "", &MalformedChapterError{Href: entry.Href, Reason: "content item missing from archive"}
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", &MalformedChapterError{Href: entry.Href, Reason: "content item unparsable"}
	}

	root := doc
	if fragment != "" {
		root = findByID(doc, fragment)
		if root == nil {
			return "", &MalformedChapterError{Href: entry.Href, Reason: "fragment id not found in content item"}
		}
	}

	text := blockText(root)
	text = spacePaddedBreak.ReplaceAllString(text, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n")
	text = strings.TrimSpace(text)
	return norm.NFKD.String(text), nil
}

// splitHref splits a "path#fragment" content reference.
func splitHref(href string) (itemPath, fragment string) {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i], href[i+1:]
	}
	return href, ""
}

// findByID returns the element with the given id attribute, or nil.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && getAttr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// blockText collects descendant text of n, inserting a newline whenever a
// block-level element begins. Script and style content is skipped.
func blockText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if blockTags[n.DataAtom] {
				sb.WriteByte('\n')
			}
		}
		if n.Type == html.TextNode {
			// Whitespace-only nodes are markup indentation, not content.
			if strings.TrimSpace(n.Data) != "" {
				sb.WriteString(n.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
