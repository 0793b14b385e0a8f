// Package postgres implements the persistence repositories on PostgreSQL
// via sqlx. Every query runs under a per-call timeout derived from the
// configured store timeout.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/stockpilot/papertrade/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS strategy_trades (
	id                 BIGSERIAL PRIMARY KEY,
	session_id         TEXT        NOT NULL,
	strategy           TEXT        NOT NULL,
	ts                 TIMESTAMPTZ NOT NULL,
	symbol             TEXT        NOT NULL,
	side               TEXT        NOT NULL,
	qty                BIGINT      NOT NULL,
	price              DOUBLE PRECISION NOT NULL,
	currency           TEXT        NOT NULL,
	reason             TEXT        NOT NULL,
	score_at_trade     DOUBLE PRECISION NOT NULL,
	realized_pnl       DOUBLE PRECISION NOT NULL,
	holding_period_sec BIGINT      NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_strategy_trades_session
	ON strategy_trades (session_id, strategy, ts DESC);

CREATE TABLE IF NOT EXISTS strategy_checkpoints (
	id           BIGSERIAL PRIMARY KEY,
	session_id   TEXT        NOT NULL,
	strategy     TEXT        NOT NULL,
	ts           TIMESTAMPTZ NOT NULL,
	total_equity DOUBLE PRECISION NOT NULL,
	return_pct   DOUBLE PRECISION NOT NULL,
	drawdown_pct DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_strategy_checkpoints_session
	ON strategy_checkpoints (session_id, strategy, ts);

CREATE TABLE IF NOT EXISTS final_reports (
	id           BIGSERIAL PRIMARY KEY,
	session_id   TEXT        NOT NULL UNIQUE,
	winner       TEXT        NOT NULL,
	tick_count   INTEGER     NOT NULL,
	report       JSONB       NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Connect opens the database, verifies connectivity, applies the schema and
// returns a fully wired Store.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*persistence.Store, *sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	store := &persistence.Store{
		Trades:      NewTradesRepo(db, timeout),
		Checkpoints: NewCheckpointsRepo(db, timeout),
		Reports:     NewReportsRepo(db, timeout),
	}
	return store, db, nil
}
