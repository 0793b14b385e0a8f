package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stockpilot/papertrade/internal/persistence"
)

type tradesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradesRepo creates a PostgreSQL trades repository.
func NewTradesRepo(db *sqlx.DB, timeout time.Duration) persistence.TradesRepo {
	return &tradesRepo{db: db, timeout: timeout}
}

func (r *tradesRepo) Insert(ctx context.Context, trade persistence.TradeRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO strategy_trades
			(session_id, strategy, ts, symbol, side, qty, price, currency, reason, score_at_trade, realized_pnl, holding_period_sec)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		trade.SessionID, trade.Strategy, trade.Timestamp, trade.Symbol,
		trade.Side, trade.Quantity, trade.Price, trade.Currency,
		trade.Reason, trade.ScoreAtTrade, trade.RealizedPnL, trade.HoldingPeriod)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate trade: %w", err)
		}
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (r *tradesRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]persistence.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, session_id, strategy, ts, symbol, side, qty, price, currency, reason, score_at_trade, realized_pnl, holding_period_sec, created_at
		FROM strategy_trades
		WHERE session_id = $1
		ORDER BY ts DESC
		LIMIT $2`

	var trades []persistence.TradeRecord
	if err := r.db.SelectContext(ctx, &trades, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}
