package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeIntent_Transition(t *testing.T) {
	intent := domain.TradeIntent{IntentID: "c1:M1", State: domain.StateAdmitted}

	// no se puede saltar SUBMITTING
	assert.Error(t, intent.Transition(domain.StateFilled))

	require.NoError(t, intent.Transition(domain.StateSubmitting))
	require.NoError(t, intent.Transition(domain.StatePartiallyFilled))
	assert.True(t, intent.State.IsTerminal())
	assert.True(t, intent.State.Deployed())

	// terminal es final
	assert.Error(t, intent.Transition(domain.StateFailed))
	assert.Error(t, intent.Transition(domain.StateSubmitting))
	assert.Equal(t, domain.StatePartiallyFilled, intent.State)
}

func TestIntentState_Terminal(t *testing.T) {
	assert.False(t, domain.StateAdmitted.IsTerminal())
	assert.False(t, domain.StateSubmitting.IsTerminal())
	assert.True(t, domain.StateRejectedByVenue.IsTerminal())
	assert.False(t, domain.StateRejectedByVenue.Deployed())
	assert.False(t, domain.StateFailed.Deployed())
}

func TestNewTradeRecord(t *testing.T) {
	at := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)
	intent := domain.TradeIntent{
		IntentID: "c1:M1", CycleID: "c1", MarketID: "M1", GameID: "G1", TeamID: "LAL",
		FairProbability: 0.734, QuotePrice: 0.19, Edge: 0.544,
		StakeAmount: 200, LimitPrice: 0.21, Quantity: 952, State: domain.StateFailed,
	}

	rec := domain.NewTradeRecord(intent, domain.ModeLive, domain.Fill{}, 3, errors.New("boom"), at)

	assert.Equal(t, "c1:M1", rec.IntentID)
	assert.Equal(t, domain.StateFailed, rec.FinalState)
	assert.Equal(t, domain.ModeLive, rec.Mode)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, "boom", rec.Error)
	assert.Equal(t, at, rec.Timestamp)
	assert.Zero(t, rec.FilledAmount)
}
