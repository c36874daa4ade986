// Package diagnostics keeps a persistent record of delete attempts so
// failures reported to the user can be traced afterwards.
package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcome classifies a delete attempt.
type Outcome string

const (
	OutcomeDeleted  Outcome = "deleted"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Attempt is one DELETE request and how it ended.
type Attempt struct {
	ID          int64
	Endpoint    string
	StatusCode  int
	Outcome     Outcome
	Error       string
	Latency     time.Duration
	AttemptedAt time.Time
}

// Ledger handles persistence of delete attempts to SQLite.
type Ledger struct {
	db *sql.DB
}

// NewLedger initializes the Ledger with an existing database connection.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Record saves an attempt.
func (l *Ledger) Record(ctx context.Context, a Attempt) error {
	ts := a.AttemptedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO delete_attempts (endpoint, status_code, outcome, error, latency_ms, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Endpoint, a.StatusCode, string(a.Outcome), a.Error, a.Latency.Milliseconds(), ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delete attempt: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, endpoint, status_code, outcome, error, latency_ms, attempted_at
		 FROM delete_attempts ORDER BY attempted_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list delete attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a         Attempt
			outcome   string
			latencyMS int64
		)
		if err := rows.Scan(&a.ID, &a.Endpoint, &a.StatusCode, &outcome, &a.Error, &latencyMS, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delete attempt: %w", err)
		}
		a.Outcome = Outcome(outcome)
		a.Latency = time.Duration(latencyMS) * time.Millisecond
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Cleanup removes attempts older than the given number of days and returns
// how many were removed.
func (l *Ledger) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := l.db.ExecContext(ctx, `DELETE FROM delete_attempts WHERE attempted_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up delete attempts: %w", err)
	}
	return res.RowsAffected()
}

// DailyOutcomes holds attempt totals for a single day.
type DailyOutcomes struct {
	Date        string
	Deleted     int
	Rejected    int
	Failed      int
	MeanLatency time.Duration
}

// Daily returns per-day totals for the last days days, oldest first.
func (l *Ledger) Daily(ctx context.Context, days int) ([]DailyOutcomes, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := l.db.QueryContext(ctx,
		`SELECT outcome, latency_ms, attempted_at FROM delete_attempts
		 WHERE attempted_at >= ? ORDER BY attempted_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query delete attempts: %w", err)
	}
	defer rows.Close()

	var (
		results []DailyOutcomes
		total   time.Duration
	)
	for rows.Next() {
		var (
			outcome   string
			latencyMS int64
			at        time.Time
		)
		if err := rows.Scan(&outcome, &latencyMS, &at); err != nil {
			return nil, fmt.Errorf("failed to scan delete attempt: %w", err)
		}

		day := at.UTC().Format("2006-01-02")
		if len(results) == 0 || results[len(results)-1].Date != day {
			if len(results) > 0 {
				closeDay(&results[len(results)-1], total)
			}
			results = append(results, DailyOutcomes{Date: day})
			total = 0
		}

		d := &results[len(results)-1]
		switch Outcome(outcome) {
		case OutcomeDeleted:
			d.Deleted++
		case OutcomeRejected:
			d.Rejected++
		default:
			d.Failed++
		}
		total += time.Duration(latencyMS) * time.Millisecond
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) > 0 {
		closeDay(&results[len(results)-1], total)
	}
	return results, nil
}

func closeDay(d *DailyOutcomes, total time.Duration) {
	if n := d.Deleted + d.Rejected + d.Failed; n > 0 {
		d.MeanLatency = total / time.Duration(n)
	}
}
