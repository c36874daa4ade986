// Package formexpander keeps a group of numeric inputs in step with a
// multi-select: one input per selected option.
//
// Inputs are tied to selections by position only. Input i carries the
// placeholder "<label> i" and nothing links it to a particular option, so
// values typed before a selection change are discarded with the old inputs.
package formexpander

import (
	"log/slog"
	"strconv"

	"golang.org/x/net/html"

	"foodplanner/internal/page"
)

// Expander regenerates the inputs in ContainerID whenever the select
// SelectID changes.
type Expander struct {
	// FormContainerID receives the server-rendered form holding the select.
	FormContainerID string
	SelectID        string
	ContainerID     string
	// FieldName is shared by every generated input so the form submits
	// them as a repeated field.
	FieldName   string
	Placeholder string
	Logger      *slog.Logger
}

// Guests sizes the guest-count inputs for planned recipes.
var Guests = Expander{
	FormContainerID: "recipe-select-form",
	SelectID:        "id_recipes",
	ContainerID:     "guests",
	FieldName:       "guests",
	Placeholder:     "Number of guests for recipe",
}

// Quantities sizes the quantity inputs for planned extras.
var Quantities = Expander{
	FormContainerID: "extras-select-form",
	SelectID:        "id_extras",
	ContainerID:     "quantity",
	FieldName:       "quantity",
	Placeholder:     "Quantity of extra",
}

// Mount installs the server-rendered form and binds to its select.
func (e Expander) Mount(doc *page.Document, formHTML string) error {
	if err := doc.SetInnerHTML(e.FormContainerID, formHTML); err != nil {
		return err
	}
	return e.Bind(doc)
}

// Bind regenerates the inputs on every change of the select and once now,
// so the group matches any options the server pre-selected.
func (e Expander) Bind(doc *page.Document) error {
	if err := doc.OnChange(e.SelectID, func() {
		if err := e.Sync(doc); err != nil {
			e.logger().Error("failed to regenerate inputs", "select", e.SelectID, "error", err)
		}
	}); err != nil {
		return err
	}
	return e.Sync(doc)
}

// Sync regenerates the inputs for the select's current cardinality.
func (e Expander) Sync(doc *page.Document) error {
	n, err := doc.SelectedCount(e.SelectID)
	if err != nil {
		return err
	}
	return e.Regenerate(doc, n)
}

// Regenerate replaces the container's contents with exactly n fresh inputs.
func (e Expander) Regenerate(doc *page.Document, n int) error {
	return doc.ReplaceChildren(e.ContainerID, e.Fields(n)...)
}

// Fields builds n inputs labelled 1..n.
func (e Expander) Fields(n int) []*html.Node {
	fields := make([]*html.Node, 0, n)
	for i := 1; i <= n; i++ {
		fields = append(fields, page.Element("input",
			page.Attr("type", "number"),
			page.Attr("name", e.FieldName),
			page.Attr("min", "1"),
			page.Classes("form-control", "my-2"),
			page.Attr("placeholder", e.Placeholder+" "+strconv.Itoa(i)),
		))
	}
	return fields
}

func (e Expander) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
