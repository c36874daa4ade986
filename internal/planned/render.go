package planned

import (
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"foodplanner/internal/page"
)

// Kind distinguishes planned recipes from planned extras.
type Kind string

const (
	Recipe Kind = "recipe"
	Extra  Kind = "extra"
)

// ElementID derives the entry id for an item, e.g. "planned-recipe-7".
func (k Kind) ElementID(id string) string {
	return "planned-" + string(k) + "-" + id
}

// Container is the page container holding this kind's list.
func (k Kind) Container() string {
	return "planned-" + string(k) + "s"
}

const (
	// DeleteURLAttr carries the resolved endpoint on each delete control.
	DeleteURLAttr = "data-delete-url"
	// IDAttr carries the item id on each delete control.
	IDAttr = "data-id"
	// DeleteButtonSelector matches every rendered delete control.
	DeleteButtonSelector = "button.delete-button"
)

// ErrSuperseded is returned when a newer render already reached the page.
var ErrSuperseded = errors.New("render superseded by a newer one")

// sequencer orders full re-renders of one container. A render whose
// generation is not newer than the last committed one is dropped.
type sequencer struct {
	mu        sync.Mutex
	issued    uint64
	committed uint64
}

// Begin reserves a generation. Take it before fetching the data to render.
func (s *sequencer) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

func (s *sequencer) commit(gen uint64, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.committed {
		return ErrSuperseded
	}
	if err := fn(); err != nil {
		return err
	}
	s.committed = gen
	return nil
}

// Renderer rebuilds a planned-items list from scratch on every call.
type Renderer struct {
	sequencer

	doc         *page.Document
	kind        Kind
	containerID string
	template    string
	placeholder string
	logger      *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithContainer overrides the default container id for the kind.
func WithContainer(id string) Option {
	return func(r *Renderer) { r.containerID = id }
}

// WithURLTemplate sets the delete URL template used for records that
// arrive without a delete_url.
func WithURLTemplate(template, placeholder string) Option {
	return func(r *Renderer) {
		r.template = template
		r.placeholder = placeholder
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer creates a Renderer for kind over doc.
func NewRenderer(doc *page.Document, kind Kind, opts ...Option) *Renderer {
	r := &Renderer{
		doc:         doc,
		kind:        kind,
		containerID: kind.Container(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kind returns the kind of items this renderer draws.
func (r *Renderer) Kind() Kind {
	return r.kind
}

// Render replaces the container's contents with one entry per item.
func (r *Renderer) Render(items []Item) error {
	return r.RenderGeneration(r.Begin(), items)
}

// RenderGeneration renders items for a generation obtained from Begin.
// It returns ErrSuperseded if a newer generation has already rendered.
func (r *Renderer) RenderGeneration(gen uint64, items []Item) error {
	nodes := make([]*html.Node, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		elementID := r.kind.ElementID(item.ID)
		if seen[elementID] {
			r.logger.Warn("dropping duplicate planned item", "kind", r.kind, "id", item.ID)
			continue
		}
		seen[elementID] = true
		nodes = append(nodes, r.entry(item))
	}

	return r.commit(gen, func() error {
		return r.doc.ReplaceChildren(r.containerID, nodes...)
	})
}

// Endpoint returns the delete endpoint the renderer attaches for item.
func (r *Renderer) Endpoint(item Item) string {
	if item.DeleteEndpoint != "" {
		return item.DeleteEndpoint
	}
	return ResolveEndpoint(r.template, r.placeholder, item.ID)
}

func (r *Renderer) entry(item Item) *html.Node {
	li := page.Element("li",
		page.Classes("list-group-item"),
		page.Attr("id", r.kind.ElementID(item.ID)),
	)
	li.AppendChild(page.Text(item.DisplayText))

	endpoint := r.Endpoint(item)
	if endpoint == "" {
		r.logger.Warn("planned item has no delete endpoint", "kind", r.kind, "id", item.ID)
		return li
	}

	button := page.Element("button",
		page.Attr("type", "button"),
		page.Classes("btn", "btn-danger", "float-right", "delete-button"),
		page.Attr(IDAttr, item.ID),
		page.Attr(DeleteURLAttr, endpoint),
	)
	button.AppendChild(page.Text("Delete"))
	li.AppendChild(button)
	return li
}
