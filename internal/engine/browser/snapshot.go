package browser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// snapshotURLPrefix marks the first line of a dumped snapshot carrying the page URL.
const snapshotURLPrefix = "<!-- gmapscraper-url: "

// Snapshot is a read-only Page over a saved HTML document. It lets the field
// extractor run offline against pages dumped by a debug session.
type Snapshot struct {
	doc *goquery.Document
	url string
}

// NewSnapshot parses an HTML document served at url.
func NewSnapshot(r io.Reader, url string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return &Snapshot{doc: doc, url: url}, nil
}

// LoadSnapshot reads a file written by EncodeSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var url string
	if line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine(); bytes.HasPrefix(line, []byte(snapshotURLPrefix)) {
		url = strings.TrimSuffix(strings.TrimPrefix(string(line), snapshotURLPrefix), " -->")
	}
	return NewSnapshot(bytes.NewReader(data), url)
}

// EncodeSnapshot prefixes html with a comment recording the page URL.
func EncodeSnapshot(url, html string) []byte {
	return []byte(snapshotURLPrefix + url + " -->\n" + html)
}

func (s *Snapshot) Navigate(_ context.Context, url string) error {
	s.url = url
	return nil
}

func (s *Snapshot) Fill(context.Context, string, string) error { return nil }

func (s *Snapshot) PressEnter(context.Context) error { return nil }

func (s *Snapshot) FindAll(_ context.Context, locator string) ([]Element, error) {
	sel := s.doc.Find(locator)
	elems := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		elems = append(elems, snapshotElement{sel: node})
	})
	return elems, nil
}

// WaitFor reports whether locator matches; a saved page never changes.
func (s *Snapshot) WaitFor(_ context.Context, locator string, _ time.Duration) (bool, error) {
	return s.doc.Find(locator).Length() > 0, nil
}

func (s *Snapshot) Scroll(context.Context, string, int) error { return nil }

func (s *Snapshot) Settle(context.Context) error { return nil }

func (s *Snapshot) Title(context.Context) (string, error) {
	return strings.TrimSpace(s.doc.Find("title").First().Text()), nil
}

func (s *Snapshot) URL(context.Context) (string, error) {
	return s.url, nil
}

func (s *Snapshot) HTML(context.Context) (string, error) {
	return s.doc.Html()
}

func (s *Snapshot) Close() error { return nil }

type snapshotElement struct {
	sel *goquery.Selection
}

func (e snapshotElement) Text(context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e snapshotElement) Click(context.Context) error { return nil }
