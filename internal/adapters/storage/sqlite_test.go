package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeRecord(intentID string, state domain.IntentState, stake, filled float64, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		IntentID: intentID, CycleID: "c1", Timestamp: at, Mode: domain.ModeShadow,
		MarketID: "KXNBA-LAL", GameID: "G1", TeamID: "LAL",
		FairProbability: 0.734, QuotePrice: 0.19, Edge: 0.544,
		StakeAmount: stake, LimitPrice: 0.21, Quantity: 952,
		FinalState: state, FilledQuantity: 952, FilledAmount: filled,
		OrderID: "o-" + intentID, Attempts: 1,
	}
}

func TestSQLiteStorage_TradeRecordsWriteOnce(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := makeRecord("c1:A", domain.StateFilled, 200, 199.92, now)
	require.NoError(t, db.EmitTradeRecord(ctx, rec))
	assert.Error(t, db.EmitTradeRecord(ctx, rec), "second record for the same intent must fail")
}

func TestSQLiteStorage_GetTradeStats(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.EmitTradeRecord(ctx, makeRecord("c1:A", domain.StateFilled, 200, 199.92, now.Add(-2*time.Minute))))
	require.NoError(t, db.EmitTradeRecord(ctx, makeRecord("c1:B", domain.StatePartiallyFilled, 100, 40, now.Add(-time.Minute))))
	failed := makeRecord("c1:C", domain.StateFailed, 150, 0, now)
	failed.Error = "bad gateway"
	require.NoError(t, db.EmitTradeRecord(ctx, failed))
	// fuera de rango
	require.NoError(t, db.EmitTradeRecord(ctx, makeRecord("c0:Z", domain.StateFilled, 200, 200, now.Add(-48*time.Hour))))

	stats, err := db.GetTradeStats(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ByState[domain.StateFilled])
	assert.Equal(t, 1, stats.ByState[domain.StatePartiallyFilled])
	assert.Equal(t, 1, stats.ByState[domain.StateFailed])
	assert.InDelta(t, 450.0, stats.StakeTotal, 0.001)
	assert.InDelta(t, 239.92, stats.FilledTotal, 0.001)
	assert.InDelta(t, 0.544, stats.AvgEdge, 0.0001)

	require.Len(t, stats.Recent, 3)
	assert.Equal(t, "c1:C", stats.Recent[0].IntentID) // más reciente primero
	assert.Equal(t, "bad gateway", stats.Recent[0].Error)
	assert.Equal(t, domain.ModeShadow, stats.Recent[0].Mode)
	assert.WithinDuration(t, now, stats.Recent[0].Timestamp, time.Millisecond)
}

func TestSQLiteStorage_GetTradeStats_Empty(t *testing.T) {
	db := newDB(t)
	stats, err := db.GetTradeStats(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.Recent)
}

func TestSQLiteStorage_SaveCycleAndDecisions(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	intent := domain.TradeIntent{IntentID: "c1:M1"}
	summary := domain.CycleSummary{
		CycleID: "c1", StartedAt: time.Now().UTC(), Mode: domain.ModeShadow,
		Bankroll: 10000, Quotes: 2, Admitted: 1, Rejected: 1, StakeTotal: 200,
		Duration: 120 * time.Millisecond,
		Decisions: []domain.Decision{
			{
				CycleID: "c1", Quote: domain.MarketQuote{MarketID: "M1", TeamID: "LAL", YesPrice: 0.19},
				Edge:  domain.EdgeResult{MarketID: "M1", Edge: 0.544, FairProbability: 0.734, Eligible: true},
				State: domain.AdmissionAdmitted, StakeAmount: 200, Intent: &intent,
			},
			{
				CycleID: "c1", Quote: domain.MarketQuote{MarketID: "M2", TeamID: "BOS", YesPrice: 0.95},
				Edge:  domain.EdgeResult{MarketID: "M2", Edge: -0.05, FairProbability: 0.90, Eligible: true},
				State: domain.AdmissionRejected, Reason: domain.RejectBelowThreshold,
			},
		},
		Ledger: domain.LedgerSnapshot{CommittedToday: 200},
	}
	require.NoError(t, db.SaveCycle(ctx, summary))

	decisions, err := db.GetDecisions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, "M1", decisions[0].Quote.MarketID)
	assert.Equal(t, domain.AdmissionAdmitted, decisions[0].State)
	assert.Equal(t, domain.RejectBelowThreshold, decisions[1].Reason)

	// ciclo duplicado
	assert.Error(t, db.SaveCycle(ctx, summary))
}

func TestSQLiteStorage_BuildAndSaveDaily(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveCycle(ctx, domain.CycleSummary{
		CycleID: "c1", StartedAt: day.Add(10 * time.Hour), Mode: domain.ModeShadow,
		Admitted: 2, Rejected: 5, Ledger: domain.LedgerSnapshot{CommittedToday: 300},
	}))
	require.NoError(t, db.SaveCycle(ctx, domain.CycleSummary{
		CycleID: "c2", StartedAt: day.Add(11 * time.Hour), Mode: domain.ModeShadow,
		Admitted: 1, Rejected: 3, Ledger: domain.LedgerSnapshot{CommittedToday: 450},
	}))
	require.NoError(t, db.EmitTradeRecord(ctx, makeRecord("c1:A", domain.StateFilled, 200, 199.92, day.Add(10*time.Hour))))
	require.NoError(t, db.EmitTradeRecord(ctx, makeRecord("c1:B", domain.StateRejectedByVenue, 100, 0, day.Add(10*time.Hour))))

	d, err := db.BuildDaily(ctx, day.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, day, d.Date)
	assert.Equal(t, 2, d.Cycles)
	assert.Equal(t, 3, d.Admitted)
	assert.Equal(t, 8, d.Rejected)
	assert.Equal(t, 1, d.Filled)
	assert.Equal(t, 1, d.VenueRejected)
	assert.InDelta(t, 450.0, d.CommittedToday, 0.001)

	require.NoError(t, db.SaveDaily(ctx, d))
	d.Cycles = 3
	require.NoError(t, db.SaveDaily(ctx, d)) // upsert

	dailies, err := db.GetDailies(ctx)
	require.NoError(t, err)
	require.Len(t, dailies, 1)
	assert.Equal(t, 3, dailies[0].Cycles)
	assert.Equal(t, day, dailies[0].Date)
}

func TestSQLiteStorage_SaveCycle_RepeatedMarket(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	quote := domain.MarketQuote{MarketID: "M1", TeamID: "LAL", YesPrice: 0.30}
	summary := domain.CycleSummary{
		CycleID: "c1", StartedAt: time.Now().UTC(), Mode: domain.ModeShadow,
		Quotes: 2, Admitted: 1, Rejected: 1,
		Decisions: []domain.Decision{
			{CycleID: "c1", Quote: quote, State: domain.AdmissionAdmitted},
			{CycleID: "c1", Quote: quote, State: domain.AdmissionRejected, Reason: domain.RejectDuplicate},
		},
	}
	require.NoError(t, db.SaveCycle(ctx, summary))

	decisions, err := db.GetDecisions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, domain.AdmissionAdmitted, decisions[0].State)
	assert.Equal(t, domain.RejectDuplicate, decisions[1].Reason)
}
