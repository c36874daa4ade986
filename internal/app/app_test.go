package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodplanner/internal/api"
	"foodplanner/internal/config"
	"foodplanner/internal/deletion"
	"foodplanner/internal/diagnostics"
	"foodplanner/internal/page"
	"foodplanner/internal/planned"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

type memoryLedger struct {
	mu       sync.Mutex
	attempts []diagnostics.Attempt
}

func (l *memoryLedger) Record(_ context.Context, a diagnostics.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, a)
	return nil
}

// planner fakes the meal-planning server. Deletes of endpoints listed in
// failing answer 500.
type planner struct {
	mu      sync.Mutex
	failing map[string]bool
	deleted []string
	// extras replaces the default planned extras payload when set.
	extras string
}

func (p *planner) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.failing[r.URL.Path] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		p.deleted = append(p.deleted, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.URL.Path {
	case "/get_planned_recipes/":
		// Record 9 has no delete_url and falls back to the template.
		fmt.Fprint(w, `{
			"7": {"id": 7, "str": "Pasta x2", "delete_url": "/plannedrecipes/7/delete/"},
			"9": {"id": 9, "str": "Curry x4"}
		}`)
	case "/get_planned_extras/":
		if p.extras != "" {
			fmt.Fprint(w, p.extras)
			return
		}
		fmt.Fprint(w, `{"3": {"id": 3, "str": "Milk x1", "delete_url": "/plannedextras/3/delete/"}}`)
	case "/get_planned_ingredients/":
		fmt.Fprint(w, `{"Tomato": {"quantity": 3, "unit": "pcs", "from_recipe": "Pasta"}}`)
	case "/generate_recipe_select_form/":
		fmt.Fprint(w, `{"recipe_form_html": "<select id=\"id_recipes\" multiple><option value=\"1\">Pasta</option><option value=\"2\">Curry</option><option value=\"3\">Soup</option></select>"}`)
	case "/generate_extras_select_form/":
		fmt.Fprint(w, `{"extras_form_html": "<select id=\"id_extras\" multiple><option value=\"a\">Milk</option></select>"}`)
	default:
		http.NotFound(w, r)
	}
}

func newApp(t *testing.T, p *planner) (*App, *recorder, *memoryLedger) {
	t.Helper()
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		BaseURL:                server.URL,
		CSRFCookieName:         "csrftoken",
		CSRFHeaderName:         "X-CSRFToken",
		DeleteURLTemplate:      "/plannedrecipes/PLACEHOLDER/delete/",
		ExtraDeleteURLTemplate: "/plannedextras/PLACEHOLDER/delete/",
		URLPlaceholder:         "PLACEHOLDER",
	}
	doc, err := page.Shell()
	require.NoError(t, err)

	doer, err := api.NewDoer(server.Client(), server.URL)
	require.NoError(t, err)

	notifier := &recorder{}
	ledger := &memoryLedger{}
	a := NewApp(cfg, api.NewClient(server.Client(), cfg), doer, doc, nil, notifier, ledger, nil)
	return a, notifier, ledger
}

func listText(a *App, container string) []string {
	var out []string
	a.Page().View(func(root *goquery.Selection) {
		root.Find("#" + container + " > li").Each(func(_ int, li *goquery.Selection) {
			out = append(out, strings.TrimSpace(li.Contents().First().Text()))
		})
	})
	return out
}

func TestLoad(t *testing.T) {
	a, _, _ := newApp(t, &planner{})

	require.NoError(t, a.Load(context.Background()))

	assert.Equal(t, []string{"Pasta x2", "Curry x4"}, listText(a, "planned-recipes"))
	assert.Equal(t, []string{"Milk x1"}, listText(a, "planned-extras"))
	assert.Equal(t, []string{"/plannedrecipes/7/delete/", "/plannedrecipes/9/delete/"}, a.Endpoints(planned.Recipe))
	assert.Equal(t, []string{"/plannedextras/3/delete/"}, a.Endpoints(planned.Extra))

	html, err := a.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "Tomato: 3 pcs")
	assert.Contains(t, html, `id="id_recipes"`)
}

func TestExtraWithoutDeleteURLUsesTemplate(t *testing.T) {
	p := &planner{extras: `{"3": {"id": 3, "str": "Milk x1"}, "5": {"id": 5, "str": "Eggs x6"}}`}
	a, notifier, _ := newApp(t, p)
	require.NoError(t, a.Load(context.Background()))

	require.Equal(t, []string{"/plannedextras/3/delete/", "/plannedextras/5/delete/"}, a.Endpoints(planned.Extra))

	a.ClickDelete(context.Background(), planned.Extra, "/plannedextras/3/delete/")

	assert.Equal(t, []string{"Eggs x6"}, listText(a, "planned-extras"))
	assert.Equal(t, []string{"/plannedextras/3/delete/"}, p.deleted)
	assert.Empty(t, notifier.messages)
}

// slowRecipes answers each PlannedRecipes call only when its reply is sent.
type slowRecipes struct {
	api.Client

	mu      sync.Mutex
	calls   int
	started chan int
	replies []chan []planned.Item
}

func (s *slowRecipes) PlannedRecipes(ctx context.Context) ([]planned.Item, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	s.started <- i
	select {
	case items := <-s.replies[i]:
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLoadRecipesOutOfOrderKeepsNewest(t *testing.T) {
	client := &slowRecipes{
		started: make(chan int),
		replies: []chan []planned.Item{make(chan []planned.Item, 1), make(chan []planned.Item, 1)},
	}
	doc, err := page.Shell()
	require.NoError(t, err)
	a := NewApp(&config.Config{}, client, http.DefaultClient, doc, nil, &recorder{}, nil, nil)

	errs := make(chan error, 2)
	go func() { errs <- a.LoadRecipes(context.Background()) }()
	<-client.started
	go func() { errs <- a.LoadRecipes(context.Background()) }()
	<-client.started

	// The second request answers first; the first answer arrives late.
	client.replies[1] <- []planned.Item{{ID: "2", DisplayText: "Curry x4", DeleteEndpoint: "/plannedrecipes/2/delete/"}}
	require.NoError(t, <-errs)
	client.replies[0] <- []planned.Item{{ID: "1", DisplayText: "Pasta x2", DeleteEndpoint: "/plannedrecipes/1/delete/"}}
	require.NoError(t, <-errs)

	assert.Equal(t, []string{"Curry x4"}, listText(a, "planned-recipes"))
}

func TestLoadFailsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &config.Config{BaseURL: server.URL}
	doc, err := page.Shell()
	require.NoError(t, err)
	a := NewApp(cfg, api.NewClient(server.Client(), cfg), server.Client(), doc, nil, &recorder{}, nil, nil)

	assert.Error(t, a.Load(context.Background()))
}

func TestSelectExpandsGuests(t *testing.T) {
	a, _, _ := newApp(t, &planner{})
	require.NoError(t, a.Load(context.Background()))

	require.NoError(t, a.Select("id_recipes", "1", "3"))
	assert.Len(t, a.Page().AttrValues("#guests input", "placeholder"), 2)

	require.NoError(t, a.Select("id_extras", "a"))
	assert.Equal(t, []string{"Quantity of extra 1"}, a.Page().AttrValues("#quantity input", "placeholder"))
}

func TestClickDelete(t *testing.T) {
	p := &planner{failing: map[string]bool{"/plannedextras/3/delete/": true}}
	a, notifier, ledger := newApp(t, p)
	require.NoError(t, a.Load(context.Background()))

	a.ClickDelete(context.Background(), planned.Recipe, "/plannedrecipes/7/delete/")
	a.ClickDelete(context.Background(), planned.Extra, "/plannedextras/3/delete/")

	assert.Equal(t, []string{"Curry x4"}, listText(a, "planned-recipes"))
	assert.Equal(t, []string{"Milk x1"}, listText(a, "planned-extras"))
	assert.Equal(t, []string{"There was an error deleting the planned extra."}, notifier.messages)
	assert.Len(t, ledger.attempts, 2)
}

func TestDeleteAll(t *testing.T) {
	p := &planner{failing: map[string]bool{"/plannedrecipes/9/delete/": true}}
	a, notifier, _ := newApp(t, p)
	require.NoError(t, a.Load(context.Background()))

	err := a.DeleteAll(context.Background(), planned.Recipe, a.Endpoints(planned.Recipe))
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 1)
	assert.ErrorIs(t, err, deletion.ErrRejected)

	assert.Equal(t, []string{"Curry x4"}, listText(a, "planned-recipes"))
	assert.Equal(t, []string{"/plannedrecipes/7/delete/"}, p.deleted)
	assert.Len(t, notifier.messages, 1)
}

func TestDeleteAllUnknownKind(t *testing.T) {
	a, _, _ := newApp(t, &planner{})
	assert.Error(t, a.DeleteAll(context.Background(), planned.Kind("dessert"), nil))
}
