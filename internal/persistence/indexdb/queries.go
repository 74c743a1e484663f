package indexdb

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"tickbot.ai/internal/scheduler"
)

// Run is the latest state of one queued task.
type Run struct {
	RunID       string
	Kind        string
	Description string
	Outcome     scheduler.Outcome
	Reason      string
	Attempts    int
	Ticks       int
	Urgent      bool
	FirstAt     time.Time
	LastAt      time.Time
}

type RunFilter struct {
	Kind    string
	Outcome scheduler.Outcome
	// Limit caps the result; zero means 50.
	Limit int
}

// Runs returns runs matching f, most recently updated first.
func (s *SQLiteIndex) Runs(ctx context.Context, f RunFilter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind=?")
		args = append(args, f.Kind)
	}
	if f.Outcome != "" {
		where = append(where, "outcome=?")
		args = append(args, string(f.Outcome))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT run_id,kind,description,outcome,reason,attempts,ticks,urgent,first_at,last_at FROM task_runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY last_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r             Run
			outcome       string
			urgent        int
			first, latest string
		)
		if err := rows.Scan(&r.RunID, &r.Kind, &r.Description, &outcome, &r.Reason, &r.Attempts, &r.Ticks, &urgent, &first, &latest); err != nil {
			return nil, err
		}
		r.Outcome = scheduler.Outcome(outcome)
		r.Urgent = urgent != 0
		r.FirstAt, _ = time.Parse(time.RFC3339Nano, first)
		r.LastAt, _ = time.Parse(time.RFC3339Nano, latest)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Failures(ctx context.Context, limit int) ([]Run, error) {
	return s.Runs(ctx, RunFilter{Outcome: scheduler.OutcomeFailed, Limit: limit})
}

// FailureReason counts final failures sharing a reason.
type FailureReason struct {
	Kind   string
	Reason string
	Count  int
}

func (s *SQLiteIndex) FailureReasons(ctx context.Context) ([]FailureReason, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, reason, COUNT(*) FROM task_runs WHERE outcome=? GROUP BY kind, reason ORDER BY COUNT(*) DESC, kind, reason`,
		string(scheduler.OutcomeFailed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FailureReason
	for rows.Next() {
		var fr FailureReason
		if err := rows.Scan(&fr.Kind, &fr.Reason, &fr.Count); err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

// Events returns the recorded lifecycle of one run in order.
func (s *SQLiteIndex) Events(ctx context.Context, runID string) ([]scheduler.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM task_events WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []scheduler.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e scheduler.Event
		if err := sonic.UnmarshalString(raw, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
