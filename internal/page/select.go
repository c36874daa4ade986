package page

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// OnChange installs the change handler for the element currently carrying
// id, replacing any earlier one. The handler belongs to that element: it is
// dropped once the element leaves the page, even if a new element reuses
// the id.
func (d *Document) OnChange(id string, fn func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, err := d.container(id)
	if err != nil {
		return err
	}
	d.listeners[el.Nodes[0]] = fn
	return nil
}

// Select marks exactly the options whose value is listed as selected and
// fires the select's change handler. Unknown values are ignored.
func (d *Document) Select(selectID string, values ...string) error {
	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}

	d.mu.Lock()
	sel, err := d.container(selectID)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if goquery.NodeName(sel) != "select" {
		d.mu.Unlock()
		return fmt.Errorf("element %s is a <%s>, not a <select>", selectID, goquery.NodeName(sel))
	}
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		if wanted[optionValue(opt)] {
			opt.SetAttr("selected", "selected")
		} else {
			opt.RemoveAttr("selected")
		}
	})
	handler := d.listeners[sel.Nodes[0]]
	d.mu.Unlock()

	// Handlers mutate the page themselves, so they run outside the lock.
	if handler != nil {
		handler()
	}
	return nil
}

// SelectedCount returns the number of selected options in a select.
func (d *Document) SelectedCount(selectID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := d.container(selectID)
	if err != nil {
		return 0, err
	}
	return sel.Find("option[selected]").Length(), nil
}

// SelectedValues returns the values of the selected options, in option order.
func (d *Document) SelectedValues(selectID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := d.container(selectID)
	if err != nil {
		return nil, err
	}
	var values []string
	sel.Find("option[selected]").Each(func(_ int, opt *goquery.Selection) {
		values = append(values, optionValue(opt))
	})
	return values, nil
}

// optionValue falls back to the option text like a browser does.
func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return opt.Text()
}
