package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"foodplanner/internal/config"
	"foodplanner/internal/planned"
)

// Client is an interface for the meal-planning server's page endpoints.
type Client interface {
	PlannedRecipes(ctx context.Context) ([]planned.Item, error)
	PlannedExtras(ctx context.Context) ([]planned.Item, error)
	Ingredients(ctx context.Context) ([]planned.Ingredient, error)
	RecipeForm(ctx context.Context) (string, error)
	ExtrasForm(ctx context.Context) (string, error)
}

// httpClient is the concrete implementation of the API client.
type httpClient struct {
	http *http.Client
	cfg  *config.Config
}

// NewClient creates a new API client. Pass the client that owns the cookie
// jar so session and CSRF cookies are shared with deletes.
func NewClient(hc *http.Client, cfg *config.Config) Client {
	return &httpClient{http: hc, cfg: cfg}
}

type recipeFormResponse struct {
	RecipeFormHTML string `json:"recipe_form_html"`
}

type extrasFormResponse struct {
	ExtrasFormHTML string `json:"extras_form_html"`
}

// PlannedRecipes fetches the planned recipes of the configured grocery list.
func (c *httpClient) PlannedRecipes(ctx context.Context) ([]planned.Item, error) {
	var items []planned.Item
	err := c.get(ctx, "get_planned_recipes/", func(body io.Reader) (err error) {
		items, err = planned.DecodeItems(body)
		return err
	})
	return items, err
}

// PlannedExtras fetches the planned extras of the configured grocery list.
func (c *httpClient) PlannedExtras(ctx context.Context) ([]planned.Item, error) {
	var items []planned.Item
	err := c.get(ctx, "get_planned_extras/", func(body io.Reader) (err error) {
		items, err = planned.DecodeItems(body)
		return err
	})
	return items, err
}

// Ingredients fetches the aggregated ingredients of the configured grocery list.
func (c *httpClient) Ingredients(ctx context.Context) ([]planned.Ingredient, error) {
	var lines []planned.Ingredient
	err := c.get(ctx, "get_planned_ingredients/", func(body io.Reader) (err error) {
		lines, err = planned.DecodeIngredients(body)
		return err
	})
	return lines, err
}

// RecipeForm fetches the server-rendered recipe selection form.
func (c *httpClient) RecipeForm(ctx context.Context) (string, error) {
	var resp recipeFormResponse
	err := c.get(ctx, "generate_recipe_select_form/", func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&resp)
	})
	return resp.RecipeFormHTML, err
}

// ExtrasForm fetches the server-rendered extras selection form.
func (c *httpClient) ExtrasForm(ctx context.Context) (string, error) {
	var resp extrasFormResponse
	err := c.get(ctx, "generate_extras_select_form/", func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&resp)
	})
	return resp.ExtrasFormHTML, err
}

func (c *httpClient) get(ctx context.Context, path string, decode func(io.Reader) error) error {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	u = u.JoinPath(path)
	if c.cfg.GroceryListID != "" {
		u.RawQuery = url.Values{"grocery_list_id": {c.cfg.GroceryListID}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// The server only answers these views for ajax requests.
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: api error: status %d", path, resp.StatusCode)
	}

	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", path, err)
	}
	return nil
}

// Doer sends requests whose URL may be relative to the server, as the
// delete endpoints on the page usually are.
type Doer struct {
	http *http.Client
	base *url.URL
}

// NewDoer creates a Doer resolving relative URLs against baseURL.
func NewDoer(hc *http.Client, baseURL string) (*Doer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return &Doer{http: hc, base: base}, nil
}

// Do resolves the request URL and sends it.
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	if !req.URL.IsAbs() {
		req = req.Clone(req.Context())
		req.URL = d.base.ResolveReference(req.URL)
		req.Host = req.URL.Host
	}
	return d.http.Do(req)
}
