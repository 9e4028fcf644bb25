package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saferoute/internal/types"
)

// Store handles activity_reports and report_quota persistence.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, r *Report) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO activity_reports (id, kind, lat, lng, session_id, reporter, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(r.ID),
		string(r.Kind),
		r.Position.Lat, r.Position.Lng,
		nullable(string(r.SessionID)),
		nullable(r.Reporter),
		nullable(r.Note),
		r.CreatedAt,
	)
	return err
}

// Recent returns the newest reports first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Report, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, kind, lat, lng,
		       COALESCE(session_id, ''), COALESCE(reporter, ''), COALESCE(note, ''),
		       created_at
		FROM activity_reports
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Report, error) {
		var r Report
		var id, sessionID string
		err := row.Scan(&id, &r.Kind, &r.Position.Lat, &r.Position.Lng, &sessionID, &r.Reporter, &r.Note, &r.CreatedAt)
		r.ID = types.ID(id)
		r.SessionID = types.ID(sessionID)
		return r, err
	})
}

// UseQuota atomically deducts one report from uid's daily allowance, resetting
// it when last_reset_day is behind today. Returns ErrQuotaExceeded when no row
// was updated (allowance exhausted or reporter unknown).
func (s *Store) UseQuota(ctx context.Context, uid string, now time.Time) error {
	today := now.UTC().Format("2006-01-02")

	tag, err := s.db.Exec(ctx, `
		UPDATE report_quota SET
			reports_remaining = CASE WHEN last_reset_day != $1 THEN $2 - 1 ELSE reports_remaining - 1 END,
			last_reset_day = $1
		WHERE uid = $3 AND (last_reset_day < $1 OR reports_remaining > 0)
	`, today, DailyReports, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

// EnsureReporter creates a quota row for uid; an existing row is left alone.
func (s *Store) EnsureReporter(ctx context.Context, uid string, now time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO report_quota (uid, reports_remaining, last_reset_day)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, DailyReports, now.UTC().Format("2006-01-02"))
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
