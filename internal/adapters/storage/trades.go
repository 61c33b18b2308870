package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const recentTrades = 10

// EmitTradeRecord appends a terminal record. Records are write-once:
// a second record for the same intent is rejected by the primary key.
func (s *SQLiteStorage) EmitTradeRecord(ctx context.Context, r domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_records
			(intent_id, cycle_id, ts, mode, market_id, game_id, team_id,
			 fair_probability, quote_price, edge, stake_amount, limit_price,
			 quantity, final_state, filled_quantity, filled_amount, order_id,
			 attempts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.IntentID, r.CycleID, ts(r.Timestamp), string(r.Mode), r.MarketID,
		r.GameID, r.TeamID, r.FairProbability, r.QuotePrice, r.Edge,
		r.StakeAmount, r.LimitPrice, r.Quantity, string(r.FinalState),
		r.FilledQuantity, r.FilledAmount, r.OrderID, r.Attempts, r.Error,
	)
	if err != nil {
		return fmt.Errorf("storage.EmitTradeRecord: insert %s: %w", r.IntentID, err)
	}
	return nil
}

// GetTradeStats agrega los trade records con ts en [from, to).
func (s *SQLiteStorage) GetTradeStats(ctx context.Context, from, to time.Time) (domain.TradeStats, error) {
	stats := domain.TradeStats{From: from, To: to, ByState: make(map[domain.IntentState]int)}

	var avgEdge, avgFair, avgQuote sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(stake_amount), 0), COALESCE(SUM(filled_amount), 0),
		       AVG(edge), AVG(fair_probability), AVG(quote_price)
		FROM trade_records WHERE ts >= ? AND ts < ?`,
		ts(from), ts(to),
	).Scan(&stats.Total, &stats.StakeTotal, &stats.FilledTotal, &avgEdge, &avgFair, &avgQuote)
	if err != nil {
		return stats, fmt.Errorf("storage.GetTradeStats: totals: %w", err)
	}
	stats.AvgEdge = avgEdge.Float64
	stats.AvgFairProb = avgFair.Float64
	stats.AvgQuotePrice = avgQuote.Float64

	rows, err := s.db.QueryContext(ctx, `
		SELECT final_state, COUNT(*) FROM trade_records
		WHERE ts >= ? AND ts < ? GROUP BY final_state`, ts(from), ts(to))
	if err != nil {
		return stats, fmt.Errorf("storage.GetTradeStats: by state: %w", err)
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			rows.Close()
			return stats, fmt.Errorf("storage.GetTradeStats: scan state: %w", err)
		}
		stats.ByState[domain.IntentState(state)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	stats.Recent, err = s.queryTrades(ctx, `WHERE ts >= ? AND ts < ? ORDER BY ts DESC LIMIT ?`, ts(from), ts(to), recentTrades)
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *SQLiteStorage) queryTrades(ctx context.Context, where string, args ...any) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent_id, cycle_id, ts, mode, market_id, game_id, team_id,
		       fair_probability, quote_price, edge, stake_amount, limit_price,
		       quantity, final_state, filled_quantity, filled_amount, order_id,
		       attempts, error
		FROM trade_records `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.queryTrades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		var tsStr, mode, state string
		var game, team, orderID, errStr sql.NullString
		if err := rows.Scan(&r.IntentID, &r.CycleID, &tsStr, &mode, &r.MarketID,
			&game, &team, &r.FairProbability, &r.QuotePrice, &r.Edge,
			&r.StakeAmount, &r.LimitPrice, &r.Quantity, &state,
			&r.FilledQuantity, &r.FilledAmount, &orderID, &r.Attempts, &errStr); err != nil {
			return nil, fmt.Errorf("storage.queryTrades: scan row: %w", err)
		}
		r.Timestamp = parseTS(tsStr)
		r.Mode = domain.Mode(mode)
		r.FinalState = domain.IntentState(state)
		r.GameID, r.TeamID = game.String, team.String
		r.OrderID, r.Error = orderID.String, errStr.String
		out = append(out, r)
	}
	return out, rows.Err()
}
