package kalshi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// createOrderRequest es el body de POST /portfolio/orders.
type createOrderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Action        string `json:"action"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Count         int    `json:"count"`
	YesPrice      int64  `json:"yes_price"` // centavos
	TimeInForce   string `json:"time_in_force"`
}

type order struct {
	OrderID        string `json:"order_id"`
	ClientOrderID  string `json:"client_order_id"`
	Status         string `json:"status"`
	TakerFillCount int    `json:"taker_fill_count"`
	TakerFillCost  int64  `json:"taker_fill_cost"` // centavos
	RemainingCount int    `json:"remaining_count"`
}

type orderResponse struct {
	Order order `json:"order"`
}

type ordersResponse struct {
	Orders []order `json:"orders"`
	Cursor string  `json:"cursor"`
}

// maxLookupPages acota la búsqueda de una orden por client_order_id.
const maxLookupPages = 5

type balanceResponse struct {
	Balance int64 `json:"balance"` // centavos
}

// SubmitOrder places an immediate-or-cancel YES buy limit order.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	if req.Quantity <= 0 {
		return domain.OrderAck{}, domain.NewFatalVenueError("kalshi.SubmitOrder", 0,
			fmt.Errorf("invalid quantity %d", req.Quantity))
	}
	cents := toCents(req.LimitPrice)
	if cents < 1 || cents > 99 {
		return domain.OrderAck{}, domain.NewFatalVenueError("kalshi.SubmitOrder", 0,
			fmt.Errorf("limit price %.4f out of range", req.LimitPrice))
	}

	var resp orderResponse
	err := c.do(ctx, c.writeLimiter, "kalshi.SubmitOrder", http.MethodPost, "/portfolio/orders", createOrderRequest{
		Ticker:        req.MarketID,
		ClientOrderID: req.ClientOrderID,
		Action:        "buy",
		Side:          "yes",
		Type:          "limit",
		Count:         req.Quantity,
		YesPrice:      cents,
		TimeInForce:   "immediate_or_cancel",
	}, &resp)
	if err != nil {
		var ve *domain.VenueError
		if errors.As(err, &ve) && ve.Status == http.StatusConflict {
			// client_order_id ya usado: un intento anterior llegó al venue
			// aunque su respuesta se perdiera
			o, found, lerr := c.findOrder(ctx, req.MarketID, req.ClientOrderID)
			if lerr != nil {
				return domain.OrderAck{}, lerr
			}
			if found {
				slog.Warn("kalshi: duplicate client order id, using existing order",
					"client_order_id", req.ClientOrderID, "order", o.OrderID, "status", o.Status)
				return toAck(o), nil
			}
		}
		return domain.OrderAck{}, err
	}
	return toAck(resp.Order), nil
}

// findOrder busca en las órdenes del ticker la que tiene el client_order_id dado.
func (c *Client) findOrder(ctx context.Context, ticker, clientOrderID string) (order, bool, error) {
	cursor := ""
	for page := 0; page < maxLookupPages; page++ {
		q := url.Values{"ticker": {ticker}, "limit": {"100"}}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var resp ordersResponse
		if err := c.do(ctx, c.readLimiter, "kalshi.findOrder", http.MethodGet, "/portfolio/orders?"+q.Encode(), nil, &resp); err != nil {
			return order{}, false, err
		}
		for _, o := range resp.Orders {
			if o.ClientOrderID == clientOrderID {
				return o, true, nil
			}
		}
		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}
	return order{}, false, nil
}

func toAck(o order) domain.OrderAck {
	return domain.OrderAck{
		OrderID:        o.OrderID,
		Status:         mapStatus(o.Status),
		FilledQuantity: o.TakerFillCount,
		FilledCost:     fromCents(o.TakerFillCost),
	}
}

// GetBalance devuelve el cash disponible en USD.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := c.do(ctx, c.readLimiter, "kalshi.GetBalance", http.MethodGet, "/portfolio/balance", nil, &resp); err != nil {
		return 0, err
	}
	return fromCents(resp.Balance), nil
}

// Bankroll implementa ports.BankrollProvider con el balance de la cuenta.
func (c *Client) Bankroll(ctx context.Context) (float64, error) {
	return c.GetBalance(ctx)
}

func mapStatus(s string) domain.OrderStatus {
	switch s {
	case "executed":
		return domain.OrderExecuted
	case "resting", "pending":
		return domain.OrderResting
	case "canceled", "cancelled":
		return domain.OrderCanceled
	default:
		return domain.OrderRejected
	}
}

func toCents(price float64) int64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}
