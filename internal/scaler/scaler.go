// Package scaler rescales a recipe page's ingredient quantities to a guest
// count.
//
// The quantities shown when the page loads are taken as the amounts for one
// guest. Every change recomputes each quantity from that base and prints it
// with two decimals.
package scaler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"foodplanner/internal/page"
)

const (
	// GuestCountID is the element showing the current guest count.
	GuestCountID = "guest-count"
	// QuantitySelector matches every scalable quantity.
	QuantitySelector = ".ingredient-quantity"
)

// leadingNumber matches the numeric prefix of a quantity such as "1.5" or "2 cups".
var leadingNumber = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)`)

// Scaler holds the one-guest quantities of a recipe page.
type Scaler struct {
	mu     sync.Mutex
	doc    *page.Document
	guests int

	base []float64
	// raw keeps quantities with no number, which are never rewritten.
	raw    []string
	scaled []bool
}

// New reads the guest count and the base quantities from doc.
func New(doc *page.Document) (*Scaler, error) {
	counts := doc.Texts("#" + GuestCountID)
	if len(counts) != 1 {
		return nil, fmt.Errorf("%w: %s", page.ErrContainerNotFound, GuestCountID)
	}
	guests, err := strconv.Atoi(strings.TrimSpace(counts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid guest count %q: %w", counts[0], err)
	}

	s := &Scaler{doc: doc, guests: guests}
	for _, text := range doc.Texts(QuantitySelector) {
		m := leadingNumber.FindStringSubmatch(text)
		if m == nil {
			s.base = append(s.base, 0)
			s.scaled = append(s.scaled, false)
		} else {
			v, _ := strconv.ParseFloat(strings.TrimSpace(m[0]), 64)
			s.base = append(s.base, v)
			s.scaled = append(s.scaled, true)
		}
		s.raw = append(s.raw, text)
	}
	return s, nil
}

// Guests returns the current guest count.
func (s *Scaler) Guests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guests
}

// Increase adds one guest.
func (s *Scaler) Increase() (int, error) {
	return s.Change(1)
}

// Decrease removes one guest, never going below one.
func (s *Scaler) Decrease() (int, error) {
	return s.Change(-1)
}

// Change moves the guest count by delta and rewrites every quantity. A
// change that would leave fewer than one guest does nothing.
func (s *Scaler) Change(delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests := s.guests + delta
	if guests < 1 {
		return s.guests, nil
	}

	texts := make([]string, len(s.base))
	for i, v := range s.base {
		if !s.scaled[i] {
			texts[i] = s.raw[i]
			continue
		}
		texts[i] = strconv.FormatFloat(v*float64(guests), 'f', 2, 64)
	}

	if err := s.doc.SetTexts("#"+GuestCountID, strconv.Itoa(guests)); err != nil {
		return s.guests, err
	}
	if err := s.doc.SetTexts(QuantitySelector, texts...); err != nil {
		return s.guests, err
	}
	s.guests = guests
	return guests, nil
}
