package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodplanner/internal/config"
	"foodplanner/internal/planned"
)

func TestPlannedRecipes(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/get_planned_recipes/" {
				t.Errorf("Expected path '/get_planned_recipes/', got '%s'", r.URL.Path)
			}
			if r.URL.Query().Get("grocery_list_id") != "3" {
				t.Errorf("Expected grocery_list_id '3', got '%s'", r.URL.Query().Get("grocery_list_id"))
			}
			if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
				t.Error("Expected ajax header")
			}
			fmt.Fprintln(w, `{
				"12": {"id": 12, "str": "Pasta x2", "delete_url": "/plannedrecipes/12/delete/"},
				"4": {"id": 4, "str": "Curry x3", "delete_url": "/plannedrecipes/4/delete/"}
			}`)
		}))
		defer server.Close()

		client := NewClient(server.Client(), &config.Config{BaseURL: server.URL, GroceryListID: "3"})

		items, err := client.PlannedRecipes(context.Background())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(items))
		}
		if items[0] != (planned.Item{ID: "12", DisplayText: "Pasta x2", DeleteEndpoint: "/plannedrecipes/12/delete/"}) {
			t.Errorf("Unexpected first item %+v", items[0])
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.Client(), &config.Config{BaseURL: server.URL})

		if _, err := client.PlannedRecipes(context.Background()); err == nil {
			t.Fatal("Expected an error for non-200 status code, got nil")
		}
	})
}

func TestPlannedExtrasAndIngredients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("Expected no query without a grocery list, got '%s'", r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/get_planned_extras/":
			fmt.Fprintln(w, `[{"id": 1, "str": "Milk", "delete_url": "/plannedextras/1/delete/"}]`)
		case "/get_planned_ingredients/":
			fmt.Fprintln(w, `{"Tomato": {"quantity": 3, "unit": "pcs", "from_recipe": "Pasta"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.Client(), &config.Config{BaseURL: server.URL})

	extras, err := client.PlannedExtras(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(extras) != 1 || extras[0].DeleteEndpoint != "/plannedextras/1/delete/" {
		t.Errorf("Unexpected extras %+v", extras)
	}

	lines, err := client.Ingredients(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(lines) != 1 || lines[0].Name != "Tomato" || lines[0].Quantity != "3" {
		t.Errorf("Unexpected ingredients %+v", lines)
	}
}

func TestForms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate_recipe_select_form/":
			fmt.Fprintln(w, `{"recipe_form_html": "<select id=\"id_recipes\" multiple></select>"}`)
		case "/generate_extras_select_form/":
			fmt.Fprintln(w, `{"extras_form_html": "<select id=\"id_extras\" multiple></select>"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.Client(), &config.Config{BaseURL: server.URL})

	recipeForm, err := client.RecipeForm(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if recipeForm != `<select id="id_recipes" multiple></select>` {
		t.Errorf("Unexpected recipe form '%s'", recipeForm)
	}

	extrasForm, err := client.ExtrasForm(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if extrasForm != `<select id="id_extras" multiple></select>` {
		t.Errorf("Unexpected extras form '%s'", extrasForm)
	}
}

func TestDoerResolvesRelativeURLs(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	doer, err := NewDoer(server.Client(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	req, _ := http.NewRequest(http.MethodDelete, "/plannedrecipes/7/delete/", nil)
	resp, err := doer.Do(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	resp.Body.Close()

	if got != "DELETE /plannedrecipes/7/delete/" {
		t.Errorf("Unexpected request '%s'", got)
	}
	if req.URL.IsAbs() {
		t.Error("Expected the caller's request to be left untouched")
	}
}
