package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Venue submits real orders. Only used in LIVE mode.
type Venue interface {
	// SubmitOrder places a YES limit order. Errors are *domain.VenueError
	// so the dispatcher can tell transient failures from fatal ones.
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error)

	// GetBalance returns the available cash balance in USD.
	GetBalance(ctx context.Context) (float64, error)
}
