package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"

	"github.com/spf13/cobra"

	"foodplanner/internal/api"
	"foodplanner/internal/app"
	"foodplanner/internal/config"
	"foodplanner/internal/csrf"
	"foodplanner/internal/database"
	"foodplanner/internal/deletion"
	"foodplanner/internal/diagnostics"
	"foodplanner/internal/notify"
	"foodplanner/internal/page"
)

// env is shared by every command.
type env struct {
	cfg       *config.Config
	logger    *slog.Logger
	shellPath string
}

func newRootCmd() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:           "foodplanner",
		Short:         "Render and edit a meal plan page against the planner server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			e.cfg = cfg
			e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(e.logger)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&e.shellPath, "shell", "", "HTML page to render into (defaults to the built-in layout)")

	cmd.AddCommand(
		newRenderCmd(e),
		newDeleteCmd(e),
		newExpandCmd(e),
		newScaleCmd(e),
		newLedgerCmd(e),
	)
	return cmd
}

// session is a wired App plus what must be released after it.
type session struct {
	app     *app.App
	closers []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// open wires an App against the configured server. The CSRF cookie is
// primed up front; a server without the endpoint only costs the header.
func (e *env) open(ctx context.Context) (*session, error) {
	s := &session{}

	doc, err := e.loadShell()
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	hc := &http.Client{Jar: jar, Timeout: e.cfg.RequestTimeout}

	cookies, err := csrf.NewJarSource(jar, e.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := cookies.Prime(ctx, hc, e.cfg.CSRFCookieName); err != nil {
		e.logger.WarnContext(ctx, "could not obtain csrf token", "error", err)
	}

	doer, err := api.NewDoer(hc, e.cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	notifiers := notify.Multi{notify.NewLog(e.logger)}
	if e.cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(e.cfg.TelegramBotToken, e.cfg.TelegramAlertChatID, e.logger)
		if err != nil {
			e.logger.WarnContext(ctx, "telegram notices disabled", "error", err)
		} else {
			notifiers = append(notifiers, tg)
			s.closers = append(s.closers, tg.Close)
		}
	}

	var ledger deletion.Recorder
	if e.cfg.DatabasePath != "" {
		db, err := database.NewDB(e.cfg.DatabasePath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.closers = append(s.closers, func() { db.Close() })
		ledger = diagnostics.NewLedger(db.SQL)
	}

	s.app = app.NewApp(e.cfg, api.NewClient(hc, e.cfg), doer, doc, cookies, notifiers, ledger, e.logger)
	return s, nil
}

func (e *env) loadShell() (*page.Document, error) {
	if e.shellPath == "" {
		return page.Shell()
	}
	f, err := os.Open(e.shellPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open shell: %w", err)
	}
	defer f.Close()
	return page.Parse(f)
}

func (e *env) openLedger() (*diagnostics.Ledger, func(), error) {
	if e.cfg.DatabasePath == "" {
		return nil, nil, fmt.Errorf("FOODPLANNER_DATABASE_PATH environment variable not set")
	}
	db, err := database.NewDB(e.cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return diagnostics.NewLedger(db.SQL), func() { db.Close() }, nil
}

func printPage(cmd *cobra.Command, a *app.App) error {
	out, err := a.HTML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
