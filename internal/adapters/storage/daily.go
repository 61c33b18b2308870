package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// SaveDaily upserts a daily summary.
func (s *SQLiteStorage) SaveDaily(ctx context.Context, d domain.DailySummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily
		  (date, cycles, admitted, rejected, filled, partial, failed, venue_rejected,
		   stake_total, filled_total, committed_today)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(date) DO UPDATE SET
		  cycles=excluded.cycles,
		  admitted=excluded.admitted,
		  rejected=excluded.rejected,
		  filled=excluded.filled,
		  partial=excluded.partial,
		  failed=excluded.failed,
		  venue_rejected=excluded.venue_rejected,
		  stake_total=excluded.stake_total,
		  filled_total=excluded.filled_total,
		  committed_today=excluded.committed_today`,
		d.Date.Format(dateLayout),
		d.Cycles, d.Admitted, d.Rejected, d.Filled, d.Partial, d.Failed,
		d.VenueRejected, d.StakeTotal, d.FilledTotal, d.CommittedToday,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveDaily: %w", err)
	}
	return nil
}

// GetDailies returns all daily summaries ordered by date.
func (s *SQLiteStorage) GetDailies(ctx context.Context) ([]domain.DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, cycles, admitted, rejected, filled, partial, failed, venue_rejected,
		       stake_total, filled_total, committed_today
		FROM daily ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetDailies: query: %w", err)
	}
	defer rows.Close()

	var dailies []domain.DailySummary
	for rows.Next() {
		var d domain.DailySummary
		var dateStr string
		if err := rows.Scan(&dateStr, &d.Cycles, &d.Admitted, &d.Rejected, &d.Filled,
			&d.Partial, &d.Failed, &d.VenueRejected, &d.StakeTotal, &d.FilledTotal,
			&d.CommittedToday); err != nil {
			return nil, fmt.Errorf("storage.GetDailies: scan row: %w", err)
		}
		d.Date, _ = time.Parse(dateLayout, dateStr)
		dailies = append(dailies, d)
	}
	return dailies, rows.Err()
}

// BuildDaily agrega los ciclos y trade records del día (UTC) de day.
func (s *SQLiteStorage) BuildDaily(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	y, m, dd := day.UTC().Date()
	from := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	d := domain.DailySummary{Date: from}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(admitted), 0), COALESCE(SUM(rejected), 0),
		       COALESCE(MAX(committed_today), 0)
		FROM cycles WHERE started_at >= ? AND started_at < ?`,
		ts(from), ts(to),
	).Scan(&d.Cycles, &d.Admitted, &d.Rejected, &d.CommittedToday)
	if err != nil {
		return d, fmt.Errorf("storage.BuildDaily: cycles: %w", err)
	}

	stats, err := s.GetTradeStats(ctx, from, to)
	if err != nil {
		return d, fmt.Errorf("storage.BuildDaily: %w", err)
	}
	d.Filled = stats.ByState[domain.StateFilled]
	d.Partial = stats.ByState[domain.StatePartiallyFilled]
	d.Failed = stats.ByState[domain.StateFailed]
	d.VenueRejected = stats.ByState[domain.StateRejectedByVenue]
	d.StakeTotal = stats.StakeTotal
	d.FilledTotal = stats.FilledTotal
	return d, nil
}
