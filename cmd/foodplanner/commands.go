package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"foodplanner/internal/database"
	"foodplanner/internal/diagnostics"
	"foodplanner/internal/formexpander"
	"foodplanner/internal/planned"
	"foodplanner/internal/scaler"
)

func newRenderCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Fetch the planned lists and forms and print the page",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.app.Load(cmd.Context()); err != nil {
				return err
			}
			return printPage(cmd, s.app)
		},
	}
}

func newDeleteCmd(e *env) *cobra.Command {
	var (
		kind       string
		all        bool
		printAfter bool
	)

	cmd := &cobra.Command{
		Use:   "delete [endpoint...]",
		Short: "Delete planned items as if their delete buttons were clicked",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := planned.Kind(kind)
			if k != planned.Recipe && k != planned.Extra {
				return fmt.Errorf("unknown kind %q (want %q or %q)", kind, planned.Recipe, planned.Extra)
			}
			if !all && len(args) == 0 {
				return fmt.Errorf("give at least one endpoint or --all")
			}

			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.app.Load(cmd.Context()); err != nil {
				return err
			}

			endpoints := args
			if all {
				endpoints = s.app.Endpoints(k)
			}
			if err := s.app.DeleteAll(cmd.Context(), k, endpoints); err != nil {
				e.logger.WarnContext(cmd.Context(), "some deletes failed", "error", err)
			}

			remaining := s.app.Endpoints(k)
			fmt.Fprintf(cmd.ErrOrStderr(), "%d planned %ss left\n", len(remaining), k)
			if printAfter {
				return printPage(cmd, s.app)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(planned.Recipe), "list to delete from: recipe or extra")
	cmd.Flags().BoolVar(&all, "all", false, "delete every item currently listed")
	cmd.Flags().BoolVar(&printAfter, "print", false, "print the page afterwards")
	return cmd
}

func newExpandCmd(e *env) *cobra.Command {
	var selectID string

	cmd := &cobra.Command{
		Use:   "expand [option-value...]",
		Short: "Select options in a form and print the generated inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var exp formexpander.Expander
			switch selectID {
			case formexpander.Guests.SelectID:
				exp = formexpander.Guests
			case formexpander.Quantities.SelectID:
				exp = formexpander.Quantities
			default:
				return fmt.Errorf("unknown select %q", selectID)
			}

			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.app.Load(cmd.Context()); err != nil {
				return err
			}
			if err := s.app.Select(exp.SelectID, args...); err != nil {
				return err
			}

			for _, placeholder := range s.app.Page().AttrValues("#"+exp.ContainerID+" input", "placeholder") {
				fmt.Fprintln(cmd.OutOrStdout(), placeholder)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&selectID, "select", formexpander.Guests.SelectID, "select to change: id_recipes or id_extras")
	return cmd
}

func newScaleCmd(e *env) *cobra.Command {
	var by int

	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Rescale a recipe page's ingredient quantities and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.shellPath == "" {
				return fmt.Errorf("scale needs a recipe page (--shell)")
			}
			doc, err := e.loadShell()
			if err != nil {
				return err
			}
			s, err := scaler.New(doc)
			if err != nil {
				return err
			}
			guests, err := s.Change(by)
			if err != nil {
				return err
			}
			e.logger.InfoContext(cmd.Context(), "scaled recipe", "guests", guests)

			out, err := doc.HTML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().IntVar(&by, "by", 1, "guests to add, negative to remove")
	return cmd
}

func newLedgerCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect recorded delete attempts",
	}

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent delete attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, closeDB, err := e.openLedger()
			if err != nil {
				return err
			}
			defer closeDB()

			attempts, err := ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOUTCOME\tSTATUS\tLATENCY\tENDPOINT\tERROR")
			for _, a := range attempts {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					a.AttemptedAt.Format("2006-01-02 15:04:05"), a.Outcome, a.StatusCode, a.Latency, a.Endpoint, a.Error)
			}
			return w.Flush()
		},
	}
	recent.Flags().IntVar(&limit, "limit", 20, "number of attempts to show")

	var days int
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old delete attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, closeDB, err := e.openLedger()
			if err != nil {
				return err
			}
			defer closeDB()

			affected, err := ledger.Cleanup(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old delete attempts.\n", affected)
			return nil
		},
	}
	cleanup.Flags().IntVar(&days, "days", 30, "keep attempts from the last N days")

	var window int
	daily := &cobra.Command{
		Use:   "daily",
		Short: "Show delete outcomes per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, closeDB, err := e.openLedger()
			if err != nil {
				return err
			}
			defer closeDB()

			rows, err := ledger.Daily(cmd.Context(), window)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tDELETED\tREJECTED\tFAILED\tMEAN LATENCY")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", r.Date, r.Deleted, r.Rejected, r.Failed, r.MeanLatency)
			}
			return w.Flush()
		},
	}
	daily.Flags().IntVar(&window, "days", 7, "number of days to cover")

	health := &cobra.Command{
		Use:   "health",
		Short: "Show process memory and ledger size",
		RunE: func(cmd *cobra.Command, args []string) error {
			h := diagnostics.GetHealth(e.cfg.DatabasePath)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Alloc:       %s\n", h.Alloc)
			fmt.Fprintf(out, "Total alloc: %s\n", h.TotalAlloc)
			fmt.Fprintf(out, "Sys:         %s\n", h.Sys)
			fmt.Fprintf(out, "GC runs:     %d\n", h.NumGC)
			fmt.Fprintf(out, "Goroutines:  %d\n", h.Goroutines)
			fmt.Fprintf(out, "Ledger size: %s\n", h.LedgerSize)
			if e.cfg.DatabasePath == "" {
				return nil
			}

			version, dirty, err := database.SchemaVersion(e.cfg.DatabasePath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Schema:      v%d", version)
			if dirty {
				fmt.Fprint(out, " (dirty)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.AddCommand(recent, cleanup, daily, health)
	return cmd
}
