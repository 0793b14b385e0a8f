package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stockpilot/papertrade/internal/persistence"
)

type reportsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewReportsRepo creates a PostgreSQL reports repository.
func NewReportsRepo(db *sqlx.DB, timeout time.Duration) persistence.ReportsRepo {
	return &reportsRepo{db: db, timeout: timeout}
}

// Insert upserts by session: regenerating a session's final report replaces
// the previous document instead of duplicating it.
func (r *reportsRepo) Insert(ctx context.Context, report persistence.ReportRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO final_reports (session_id, winner, tick_count, report, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			winner = EXCLUDED.winner,
			tick_count = EXCLUDED.tick_count,
			report = EXCLUDED.report,
			generated_at = EXCLUDED.generated_at`

	_, err := r.db.ExecContext(ctx, query,
		report.SessionID, report.Winner, report.TickCount, report.Report, report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *reportsRepo) GetBySession(ctx context.Context, sessionID string) (*persistence.ReportRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, session_id, winner, tick_count, report, generated_at, created_at
		FROM final_reports
		WHERE session_id = $1`

	var rec persistence.ReportRecord
	if err := r.db.GetContext(ctx, &rec, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no report for session %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &rec, nil
}
