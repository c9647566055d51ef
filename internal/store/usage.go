package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/examiner/internal/llm"
)

// UsageRecord is one stored model call.
type UsageRecord struct {
	ID           int64
	Timestamp    time.Time
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// QueryOpts filters ListUsage.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact match when set
	Since   time.Time // timestamp >= Since when non-zero
}

// PurposeUsage aggregates calls for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates calls for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// RecordUsage implements llm.UsageRecorder.
func (s *Store) RecordUsage(ctx context.Context, ev llm.UsageEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_events
			(created_at, provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), ev.Provider, ev.Model, ev.Purpose,
		ev.InputTokens, ev.OutputTokens, ev.LatencyMs, ev.Success, ev.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}

// ListUsage returns stored calls, newest first.
func (s *Store) ListUsage(ctx context.Context, opts QueryOpts) ([]UsageRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Purpose != "" {
		where = append(where, "purpose = ?")
		args = append(args, opts.Purpose)
	}
	if !opts.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}

	q := `SELECT id, created_at, provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message
		FROM usage_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage events: %w", err)
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var (
			r       UsageRecord
			created int64
		)
		if err := rows.Scan(&r.ID, &created, &r.Provider, &r.Model, &r.Purpose,
			&r.InputTokens, &r.OutputTokens, &r.LatencyMs, &r.Success, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}
		r.Timestamp = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// UsageByPurpose aggregates token usage and latency per purpose.
func (s *Store) UsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT purpose, COUNT(*),
			SUM(CASE WHEN success THEN 0 ELSE 1 END),
			SUM(input_tokens), SUM(output_tokens), CAST(AVG(latency_ms) AS INTEGER)
		FROM usage_events GROUP BY purpose ORDER BY purpose`)
	if err != nil {
		return nil, fmt.Errorf("query usage by purpose: %w", err)
	}
	defer rows.Close()

	var out []PurposeUsage
	for rows.Next() {
		var u PurposeUsage
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.Failures, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage by purpose: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UsageByModel aggregates token usage per model for cost estimates.
func (s *Store) UsageByModel(ctx context.Context) ([]ModelUsage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT model, COUNT(*), SUM(input_tokens), SUM(output_tokens)
		FROM usage_events GROUP BY model ORDER BY model`)
	if err != nil {
		return nil, fmt.Errorf("query usage by model: %w", err)
	}
	defer rows.Close()

	var out []ModelUsage
	for rows.Next() {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Calls, &u.InputTokens, &u.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan usage by model: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
