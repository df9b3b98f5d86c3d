// Package audit persists the authorization audit trail: login outcomes,
// role-label anomalies, guard denials and role changes.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Well-known audit actions.
const (
	ActionLogin       = "auth.login"
	ActionLogout      = "auth.logout"
	ActionRoleAnomaly = "auth.role_anomaly"
	ActionGuardDenied = "guard.denied"
	ActionRoleChange  = "users.role_change"
)

// Entry represents a record stored in audit_log.
type Entry struct {
	ActorID string
	Action  string
	Subject string
	Meta    map[string]any
	At      time.Time
}

// Recorder writes entries into audit_log. A nil Recorder is valid and drops
// records, so callers never need to branch on whether auditing is wired.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a Recorder over the given pool.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the entry. Failures are returned for the caller to log;
// auditing never blocks the request outcome.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if r == nil || r.pool == nil {
		return nil
	}
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return err
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_log (actor_id, action, subject, meta, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ActorID, e.Action, e.Subject, meta, at)
	return err
}

// ListRecent returns the newest entries for the console audit page.
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if r == nil || r.pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT actor_id, action, subject, meta, occurred_at FROM audit_log ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			meta []byte
		)
		if err := rows.Scan(&e.ActorID, &e.Action, &e.Subject, &meta, &e.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Meta)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge removes entries older than the cutoff and reports how many rows went
// away. Used by the retention job.
func (r *Recorder) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_log WHERE occurred_at < $1`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountSince counts entries for one action since the cutoff. Used by the
// anomaly digest job.
func (r *Recorder) CountSince(ctx context.Context, action string, since time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, nil
	}
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE action = $1 AND occurred_at >= $2`, action, since.UTC()).Scan(&n)
	return n, err
}
