package planned

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Item is a planned recipe or planned extra as the server reports it.
type Item struct {
	ID             string
	DisplayText    string
	DeleteEndpoint string
}

// record is the wire shape. Older endpoints send "str", newer ones "displayText".
type record struct {
	ID          flexString `json:"id"`
	Str         string     `json:"str"`
	DisplayText string     `json:"displayText"`
	DeleteURL   string     `json:"delete_url"`
}

func (r record) item() Item {
	text := r.DisplayText
	if text == "" {
		text = r.Str
	}
	return Item{ID: string(r.ID), DisplayText: text, DeleteEndpoint: r.DeleteURL}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// DecodeItems reads either a JSON object of records or a JSON array of
// records. Object key order is kept, so items come back in the order the
// server wrote them.
func DecodeItems(r io.Reader) ([]Item, error) {
	var items []Item
	err := decodeOrdered(r, func(_ string, raw json.RawMessage) error {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		items = append(items, rec.item())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode planned items: %w", err)
	}
	return items, nil
}

// decodeOrdered walks the top-level object or array and hands every value
// to fn in document order. Array elements get an empty key.
func decodeOrdered(r io.Reader, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return fmt.Errorf("expected object or array, got %v", tok)
	}

	for dec.More() {
		var key string
		if delim == '{' {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok = tok.(string)
			if !ok {
				return fmt.Errorf("unexpected token %v", tok)
			}
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			if key != "" {
				return fmt.Errorf("entry %q: %w", key, err)
			}
			return err
		}
	}

	// closing delimiter
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// ResolveEndpoint fills the path-escaped id into a delete URL template.
func ResolveEndpoint(template, placeholder, id string) string {
	if template == "" || placeholder == "" {
		return template
	}
	return strings.Replace(template, placeholder, url.PathEscape(id), 1)
}
