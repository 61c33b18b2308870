// Package execution lleva los trade intents admitidos a un estado terminal,
// simulando el fill (SHADOW) o enviando la orden al venue (LIVE).
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/metrics"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

// Executor realiza un único intento de ejecución de un intent.
// Los reintentos los gestiona el Dispatcher.
type Executor interface {
	Mode() domain.Mode
	Execute(ctx context.Context, intent domain.TradeIntent) (domain.Fill, error)
}

// ShadowExecutor simula un fill completo al precio límite sin tocar el venue.
type ShadowExecutor struct{}

// NewShadowExecutor crea el executor de SHADOW.
func NewShadowExecutor() *ShadowExecutor { return &ShadowExecutor{} }

func (ShadowExecutor) Mode() domain.Mode { return domain.ModeShadow }

func (ShadowExecutor) Execute(_ context.Context, intent domain.TradeIntent) (domain.Fill, error) {
	return domain.Fill{
		OrderID:        "shadow-" + uuid.NewString(),
		State:          domain.StateFilled,
		FilledQuantity: intent.Quantity,
		FilledAmount:   cost(intent.Quantity, intent.LimitPrice),
	}, nil
}

// LiveExecutor envía órdenes IOC al venue.
type LiveExecutor struct {
	venue ports.Venue
}

// NewLiveExecutor crea el executor de LIVE sobre el venue dado.
func NewLiveExecutor(venue ports.Venue) *LiveExecutor {
	return &LiveExecutor{venue: venue}
}

func (e *LiveExecutor) Mode() domain.Mode { return domain.ModeLive }

// Execute submits one order. The intent ID is the client order ID, so a retried
// submission is deduplicated by the venue.
func (e *LiveExecutor) Execute(ctx context.Context, intent domain.TradeIntent) (domain.Fill, error) {
	start := time.Now()
	ack, err := e.venue.SubmitOrder(ctx, domain.OrderRequest{
		ClientOrderID: intent.IntentID,
		MarketID:      intent.MarketID,
		LimitPrice:    intent.LimitPrice,
		Quantity:      intent.Quantity,
	})
	metrics.ObserveSubmit(time.Since(start), err)
	if err != nil {
		return domain.Fill{}, err
	}
	return fillFromAck(intent, ack)
}

// fillFromAck maps the venue ack to a terminal fill. The reported filled
// quantity decides the state, whatever the status says: nothing filled
// (rejected, canceled, or an IOC that found no liquidity) is REJECTED_BY_VENUE.
func fillFromAck(intent domain.TradeIntent, ack domain.OrderAck) (domain.Fill, error) {
	fill := domain.Fill{OrderID: ack.OrderID, FilledQuantity: ack.FilledQuantity}
	if ack.FilledQuantity < 0 || ack.FilledQuantity > intent.Quantity {
		return domain.Fill{}, domain.NewFatalVenueError("submit", 0,
			fmt.Errorf("venue reported %d filled for %d requested", ack.FilledQuantity, intent.Quantity))
	}

	switch {
	case ack.FilledQuantity == 0:
		fill.State = domain.StateRejectedByVenue
		fill.FilledQuantity = 0
		return fill, nil
	case ack.FilledQuantity == intent.Quantity:
		fill.State = domain.StateFilled
	default:
		fill.State = domain.StatePartiallyFilled
	}

	if ack.Status == domain.OrderRejected {
		slog.Warn("execution: venue status without fill semantics, trusting filled quantity",
			"intent", intent.IntentID, "order", ack.OrderID, "filled", ack.FilledQuantity)
	}

	fill.FilledAmount = ack.FilledCost
	if fill.FilledAmount <= 0 {
		fill.FilledAmount = cost(ack.FilledQuantity, intent.LimitPrice)
	}
	return fill, nil
}

func cost(qty int, price float64) float64 {
	return decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64()
}
