package planned

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"foodplanner/internal/page"
)

// IngredientsContainer is the page container for the aggregated grocery view.
const IngredientsContainer = "ingredients"

// Ingredient is one line of the aggregated grocery view.
type Ingredient struct {
	Name        string
	Quantity    string
	Unit        string
	FromRecipes string
}

type ingredientRecord struct {
	Quantity    json.Number `json:"quantity"`
	Unit        string      `json:"unit"`
	FromRecipe  string      `json:"from_recipe"`
	FromRecipes string      `json:"from_recipes"`
}

// DecodeIngredients reads the name-keyed ingredient mapping in server order.
// Values may be full records or bare quantities.
func DecodeIngredients(r io.Reader) ([]Ingredient, error) {
	var lines []Ingredient
	err := decodeOrdered(r, func(name string, raw json.RawMessage) error {
		line := Ingredient{Name: name}

		var qty json.Number
		if err := json.Unmarshal(raw, &qty); err == nil {
			line.Quantity = qty.String()
			lines = append(lines, line)
			return nil
		}

		var rec ingredientRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		line.Quantity = rec.Quantity.String()
		line.Unit = rec.Unit
		line.FromRecipes = rec.FromRecipe
		if line.FromRecipes == "" {
			line.FromRecipes = rec.FromRecipes
		}
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode ingredients: %w", err)
	}
	return lines, nil
}

// IngredientRenderer draws the aggregated ingredient list. Entries have no
// delete control.
type IngredientRenderer struct {
	sequencer

	doc         *page.Document
	containerID string
}

// NewIngredientRenderer creates an IngredientRenderer over doc.
func NewIngredientRenderer(doc *page.Document) *IngredientRenderer {
	return &IngredientRenderer{doc: doc, containerID: IngredientsContainer}
}

// Render replaces the container's contents with one entry per ingredient.
func (r *IngredientRenderer) Render(lines []Ingredient) error {
	return r.RenderGeneration(r.Begin(), lines)
}

// RenderGeneration renders lines for a generation obtained from Begin.
func (r *IngredientRenderer) RenderGeneration(gen uint64, lines []Ingredient) error {
	nodes := make([]*html.Node, 0, len(lines))
	for _, line := range lines {
		nodes = append(nodes, ingredientEntry(line))
	}
	return r.commit(gen, func() error {
		return r.doc.ReplaceChildren(r.containerID, nodes...)
	})
}

func ingredientEntry(line Ingredient) *html.Node {
	li := page.Element("li", page.Classes("list-group-item"))

	text := line.Name + ": " + line.Quantity
	if line.Unit != "" {
		text += " " + line.Unit
	}
	li.AppendChild(page.Text(text))

	if strings.TrimSpace(line.FromRecipes) != "" {
		span := page.Element("span", page.Classes("small-text"))
		span.AppendChild(page.Text(" for recipe(s): " + line.FromRecipes))
		li.AppendChild(span)
	}
	return li
}
