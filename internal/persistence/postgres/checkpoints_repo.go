package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stockpilot/papertrade/internal/persistence"
)

type checkpointsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCheckpointsRepo creates a PostgreSQL checkpoints repository.
func NewCheckpointsRepo(db *sqlx.DB, timeout time.Duration) persistence.CheckpointsRepo {
	return &checkpointsRepo{db: db, timeout: timeout}
}

func (r *checkpointsRepo) Insert(ctx context.Context, cp persistence.CheckpointRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO strategy_checkpoints (session_id, strategy, ts, total_equity, return_pct, drawdown_pct)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		cp.SessionID, cp.Strategy, cp.Timestamp, cp.TotalEquity, cp.ReturnPct, cp.DrawdownPct)
	if err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return nil
}

// InsertBatch writes one tick's worth of checkpoints atomically, so a crash
// mid-tick never leaves a partial equity row set behind.
func (r *checkpointsRepo) InsertBatch(ctx context.Context, cps []persistence.CheckpointRecord) error {
	if len(cps) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strategy_checkpoints (session_id, strategy, ts, total_equity, return_pct, drawdown_pct)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, cp := range cps {
		if _, err := stmt.ExecContext(ctx,
			cp.SessionID, cp.Strategy, cp.Timestamp, cp.TotalEquity, cp.ReturnPct, cp.DrawdownPct); err != nil {
			return fmt.Errorf("failed to insert checkpoint in batch: %w", err)
		}
	}
	return tx.Commit()
}

func (r *checkpointsRepo) ListByStrategy(ctx context.Context, sessionID, strategy string, limit int) ([]persistence.CheckpointRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, session_id, strategy, ts, total_equity, return_pct, drawdown_pct, created_at
		FROM strategy_checkpoints
		WHERE session_id = $1 AND strategy = $2
		ORDER BY ts
		LIMIT $3`

	var cps []persistence.CheckpointRecord
	if err := r.db.SelectContext(ctx, &cps, query, sessionID, strategy, limit); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return cps, nil
}
