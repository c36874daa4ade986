package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"foodplanner/internal/api"
	"foodplanner/internal/config"
	"foodplanner/internal/csrf"
	"foodplanner/internal/deletion"
	"foodplanner/internal/formexpander"
	"foodplanner/internal/notify"
	"foodplanner/internal/page"
	"foodplanner/internal/planned"
)

// maxConcurrentDeletes bounds DeleteAll.
const maxConcurrentDeletes = 4

// App holds the page and everything that draws on it.
type App struct {
	client api.Client
	page   *page.Document
	logger *slog.Logger

	recipes     *planned.Renderer
	extras      *planned.Renderer
	ingredients *planned.IngredientRenderer
	deletes     map[planned.Kind]*deletion.Controller

	guests     formexpander.Expander
	quantities formexpander.Expander
}

// NewApp creates and initializes a new App instance. doer sends deletes and
// should share its cookie jar with the client. ledger may be nil.
func NewApp(
	cfg *config.Config,
	client api.Client,
	doer deletion.Doer,
	doc *page.Document,
	cookies csrf.Source,
	notifier notify.Notifier,
	ledger deletion.Recorder,
	logger *slog.Logger,
) *App {
	if logger == nil {
		logger = slog.Default()
	}

	controller := func(msg string) *deletion.Controller {
		opts := []deletion.Option{
			deletion.WithCSRF(cookies, cfg.CSRFCookieName, cfg.CSRFHeaderName),
			deletion.WithNotifier(notifier),
			deletion.WithFailureMessage(msg),
			deletion.WithLogger(logger),
		}
		if ledger != nil {
			opts = append(opts, deletion.WithLedger(ledger))
		}
		return deletion.New(doer, doc, opts...)
	}

	guests, quantities := formexpander.Guests, formexpander.Quantities
	guests.Logger, quantities.Logger = logger, logger

	return &App{
		client: client,
		page:   doc,
		logger: logger,

		recipes: planned.NewRenderer(doc, planned.Recipe,
			planned.WithURLTemplate(cfg.DeleteURLTemplate, cfg.URLPlaceholder),
			planned.WithLogger(logger),
		),
		extras: planned.NewRenderer(doc, planned.Extra,
			planned.WithURLTemplate(cfg.ExtraDeleteURLTemplate, cfg.URLPlaceholder),
			planned.WithLogger(logger),
		),
		ingredients: planned.NewIngredientRenderer(doc),
		deletes: map[planned.Kind]*deletion.Controller{
			planned.Recipe: controller("There was an error deleting the planned recipe."),
			planned.Extra:  controller("There was an error deleting the planned extra."),
		},

		guests:     guests,
		quantities: quantities,
	}
}

// Page returns the document the app draws on.
func (a *App) Page() *page.Document {
	return a.page
}

// Load fetches both planned lists, the ingredient aggregation and both
// select forms, and draws them. A list whose render was overtaken by a
// newer Load is left to the newer one.
func (a *App) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.loadItems(ctx, a.recipes, a.client.PlannedRecipes) })
	g.Go(func() error { return a.loadItems(ctx, a.extras, a.client.PlannedExtras) })
	g.Go(func() error { return a.loadIngredients(ctx) })
	g.Go(func() error { return a.loadForm(ctx, a.guests, a.client.RecipeForm) })
	g.Go(func() error { return a.loadForm(ctx, a.quantities, a.client.ExtrasForm) })

	return g.Wait()
}

// LoadRecipes refreshes only the planned recipes.
func (a *App) LoadRecipes(ctx context.Context) error {
	return a.loadItems(ctx, a.recipes, a.client.PlannedRecipes)
}

// LoadExtras refreshes only the planned extras.
func (a *App) LoadExtras(ctx context.Context) error {
	return a.loadItems(ctx, a.extras, a.client.PlannedExtras)
}

func (a *App) loadItems(ctx context.Context, r *planned.Renderer, fetch func(context.Context) ([]planned.Item, error)) error {
	// The generation is taken before the fetch so responses apply in
	// request order, whatever order they arrive in.
	gen := r.Begin()
	items, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch planned %ss: %w", r.Kind(), err)
	}
	err = r.RenderGeneration(gen, items)
	if errors.Is(err, planned.ErrSuperseded) {
		a.logger.DebugContext(ctx, "discarded stale render", "kind", r.Kind(), "generation", gen)
		return nil
	}
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "rendered planned items", "kind", r.Kind(), "count", len(items))
	return nil
}

func (a *App) loadIngredients(ctx context.Context) error {
	gen := a.ingredients.Begin()
	lines, err := a.client.Ingredients(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch ingredients: %w", err)
	}
	err = a.ingredients.RenderGeneration(gen, lines)
	if errors.Is(err, planned.ErrSuperseded) {
		return nil
	}
	return err
}

func (a *App) loadForm(ctx context.Context, e formexpander.Expander, fetch func(context.Context) (string, error)) error {
	formHTML, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch %s form: %w", e.SelectID, err)
	}
	return e.Mount(a.page, formHTML)
}

// ClickDelete is the delete control's click handler. Failures are already
// logged and shown to the user, so nothing is returned.
func (a *App) ClickDelete(ctx context.Context, kind planned.Kind, endpoint string) {
	c, ok := a.deletes[kind]
	if !ok {
		a.logger.ErrorContext(ctx, "no delete controller for kind", "kind", kind)
		return
	}
	_ = c.Delete(ctx, endpoint)
}

// DeleteAll deletes every endpoint concurrently. Each delete succeeds or
// fails on its own; the failures are returned together once all finish.
func (a *App) DeleteAll(ctx context.Context, kind planned.Kind, endpoints []string) error {
	c, ok := a.deletes[kind]
	if !ok {
		return fmt.Errorf("no delete controller for kind %q", kind)
	}

	var (
		mu     sync.Mutex
		result *multierror.Error
		g      errgroup.Group
	)
	g.SetLimit(maxConcurrentDeletes)
	for _, endpoint := range endpoints {
		g.Go(func() error {
			if err := c.Delete(ctx, endpoint); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return result.ErrorOrNil()
}

// Endpoints returns the delete endpoints currently shown for kind, in page
// order.
func (a *App) Endpoints(kind planned.Kind) []string {
	return a.page.AttrValues("#"+kind.Container()+" "+planned.DeleteButtonSelector, planned.DeleteURLAttr)
}

// Select changes a select's selection as a user would, firing its change
// handler.
func (a *App) Select(selectID string, values ...string) error {
	return a.page.Select(selectID, values...)
}

// HTML serializes the page.
func (a *App) HTML() (string, error) {
	return a.page.HTML()
}
