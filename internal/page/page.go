// Package page holds the in-memory HTML document the client renders into.
//
// The document stands in for the browser DOM: containers are looked up by
// id, their children are replaced in a single step, and selects carry
// change listeners. Every mutation runs under one lock so callers observe
// the same sequential behaviour a browser event loop gives.
package page

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

//go:embed shell.html
var shellHTML []byte

// ErrContainerNotFound is returned when a named container is missing from the page.
var ErrContainerNotFound = errors.New("container not found")

// Document is a mutable HTML page. It is safe for concurrent use.
type Document struct {
	mu        sync.Mutex
	doc       *goquery.Document
	listeners map[*html.Node]func()
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{doc: doc, listeners: make(map[*html.Node]func())}, nil
}

// Shell returns a fresh copy of the built-in page layout.
func Shell() (*Document, error) {
	return Parse(bytes.NewReader(shellHTML))
}

// HTML renders the whole page.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return goquery.OuterHtml(d.doc.Selection)
}

// View runs fn against the page root while holding the lock. fn must not
// keep references to the selection after it returns.
func (d *Document) View(fn func(root *goquery.Selection)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc.Selection)
}

// HasContainer reports whether an element with the given id exists.
func (d *Document) HasContainer(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID(id).Length() > 0
}

// ReplaceChildren discards every child of the container and appends nodes
// in order.
func (d *Document) ReplaceChildren(containerID string, nodes ...*html.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	container, err := d.container(containerID)
	if err != nil {
		return err
	}
	container.Empty()
	if len(nodes) > 0 {
		container.AppendNodes(nodes...)
	}
	d.pruneListeners()
	return nil
}

// SetInnerHTML replaces the container's children with parsed markup. Only
// use it for trusted server-rendered fragments.
func (d *Document) SetInnerHTML(containerID, markup string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	container, err := d.container(containerID)
	if err != nil {
		return err
	}
	container.SetHtml(markup)
	d.pruneListeners()
	return nil
}

// RemoveClosest removes the nearest ancestor matching ancestor of the first
// element whose attr equals value. It reports whether anything was removed.
func (d *Document) RemoveClosest(attr, value, ancestor string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	target := d.findByAttr(attr, value).First().Closest(ancestor)
	if target.Length() == 0 {
		return false
	}
	target.Remove()
	d.pruneListeners()
	return true
}

// AttrValues returns attribute values of every element matching selector, in
// document order.
func (d *Document) AttrValues(selector, attr string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var values []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			values = append(values, v)
		}
	})
	return values
}

// Texts returns the text of every element matching selector, in document
// order.
func (d *Document) Texts(selector string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var texts []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts
}

// SetTexts replaces the contents of the elements matching selector with
// texts, one per element in document order. The counts must match.
func (d *Document) SetTexts(selector string, texts ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := d.doc.Find(selector)
	if sel.Length() != len(texts) {
		return fmt.Errorf("%s matches %d elements, got %d texts", selector, sel.Length(), len(texts))
	}
	sel.Each(func(i int, s *goquery.Selection) {
		s.SetText(texts[i])
	})
	d.pruneListeners()
	return nil
}

func (d *Document) container(id string) (*goquery.Selection, error) {
	sel := d.byID(id)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, id)
	}
	return sel.First(), nil
}

// byID matches ids exactly; server-derived ids are not always valid CSS.
func (d *Document) byID(id string) *goquery.Selection {
	return d.findByAttr("id", id)
}

func (d *Document) findByAttr(attr, value string) *goquery.Selection {
	return d.doc.Find("[" + attr + "]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr(attr)
		return v == value
	})
}

// pruneListeners drops handlers whose element left the page, the way a
// browser loses listeners when innerHTML is replaced.
func (d *Document) pruneListeners() {
	root := d.doc.Selection.Nodes[0]
	for n := range d.listeners {
		if !attached(n, root) {
			delete(d.listeners, n)
		}
	}
}

func attached(n, root *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Element builds a detached element node.
func Element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type: html.ElementNode,
		Data: tag,
		Attr: attrs,
	}
}

// Text builds a text node. The content is never interpreted as markup.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Attr is shorthand for an html.Attribute.
func Attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// Classes joins class names into a class attribute.
func Classes(names ...string) html.Attribute {
	return Attr("class", strings.Join(names, " "))
}
