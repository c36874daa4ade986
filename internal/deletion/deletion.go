// Package deletion deletes planned items on the server and removes their
// entry from the page once the server confirms.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"foodplanner/internal/csrf"
	"foodplanner/internal/diagnostics"
	"foodplanner/internal/notify"
	"foodplanner/internal/planned"
)

// ErrRejected marks a delete the server answered with a non-2xx status.
var ErrRejected = errors.New("delete rejected by server")

// Error describes a failed delete.
type Error struct {
	Endpoint   string
	StatusCode int // zero when no response arrived
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delete %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("delete %s: %v", e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Remover removes an entry from the page. *page.Document satisfies it.
type Remover interface {
	RemoveClosest(attr, value, ancestor string) bool
}

// Recorder persists delete attempts. *diagnostics.Ledger satisfies it.
type Recorder interface {
	Record(ctx context.Context, a diagnostics.Attempt) error
}

// Controller runs deletes for one list. It never retries; a failed delete
// needs a new user action.
type Controller struct {
	client   Doer
	page     Remover
	cookies  csrf.Source
	notifier notify.Notifier
	ledger   Recorder
	logger   *slog.Logger

	cookieName     string
	headerName     string
	failureMessage string
}

// Option configures a Controller.
type Option func(*Controller)

// WithCSRF attaches the token found in cookie cookieName as header headerName.
func WithCSRF(src csrf.Source, cookieName, headerName string) Option {
	return func(c *Controller) {
		c.cookies = src
		c.cookieName = cookieName
		c.headerName = headerName
	}
}

// WithNotifier sets where failure notices go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithFailureMessage sets the notice shown when a delete fails.
func WithFailureMessage(msg string) Option {
	return func(c *Controller) { c.failureMessage = msg }
}

// WithLedger records every attempt.
func WithLedger(r Recorder) Option {
	return func(c *Controller) { c.ledger = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller sending requests with client and removing
// entries from page.
func New(client Doer, page Remover, opts ...Option) *Controller {
	c := &Controller{
		client:         client,
		page:           page,
		logger:         slog.Default(),
		failureMessage: "There was an error deleting the planned item.",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = notify.NewLog(c.logger)
	}
	return c
}

// FailureMessage returns the notice shown on failure.
func (c *Controller) FailureMessage() string {
	return c.failureMessage
}

// Delete sends the delete and, only after the server confirms, removes the
// entry carrying endpoint. A missing entry is not an error. On failure the
// user is notified once, the page is left alone and the error is returned.
func (c *Controller) Delete(ctx context.Context, endpoint string) error {
	if err := c.Request(ctx, endpoint); err != nil {
		c.logger.ErrorContext(ctx, "planned item delete failed", "endpoint", endpoint, "error", err)
		c.notifier.Notify(ctx, c.failureMessage)
		return err
	}

	if !c.Apply(endpoint) {
		// Usually a full re-render got there first.
		c.logger.DebugContext(ctx, "deleted item no longer on page", "endpoint", endpoint)
	}
	return nil
}

// Apply removes the entry whose delete control carries endpoint.
func (c *Controller) Apply(endpoint string) bool {
	return c.page.RemoveClosest(planned.DeleteURLAttr, endpoint, "li")
}

// Request issues DELETE endpoint and reports whether the server accepted it.
// It touches neither the page nor the notifier.
func (c *Controller) Request(ctx context.Context, endpoint string) error {
	start := time.Now()
	status, err := c.send(ctx, endpoint)
	c.record(ctx, endpoint, status, err, time.Since(start))
	return err
}

func (c *Controller) send(ctx context.Context, endpoint string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return 0, &Error{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if c.cookies != nil {
		if token, ok := c.cookies.Cookie(c.cookieName); ok {
			req.Header.Set(c.headerName, token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &Error{Endpoint: endpoint, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &Error{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: ErrRejected}
	}
	return resp.StatusCode, nil
}

func (c *Controller) record(ctx context.Context, endpoint string, status int, err error, latency time.Duration) {
	if c.ledger == nil {
		return
	}

	a := diagnostics.Attempt{
		Endpoint:   endpoint,
		StatusCode: status,
		Outcome:    diagnostics.OutcomeDeleted,
		Latency:    latency,
	}
	switch {
	case errors.Is(err, ErrRejected):
		a.Outcome = diagnostics.OutcomeRejected
		a.Error = err.Error()
	case err != nil:
		a.Outcome = diagnostics.OutcomeFailed
		a.Error = err.Error()
	}

	// The ledger outlives a cancelled request context.
	if rerr := c.ledger.Record(context.WithoutCancel(ctx), a); rerr != nil {
		c.logger.WarnContext(ctx, "failed to record delete attempt", "endpoint", endpoint, "error", rerr)
	}
}
