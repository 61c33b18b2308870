package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// TradeLog escribe cada TradeRecord como una línea JSON en un fichero rotado.
// Es el feed que consumen dashboards externos.
type TradeLog struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// tradeLine es el schema público del feed.
type tradeLine struct {
	Timestamp       string  `json:"timestamp"`
	IntentID        string  `json:"intent_id"`
	Mode            string  `json:"mode"`
	MarketID        string  `json:"market_id"`
	GameID          string  `json:"game_id"`
	TeamID          string  `json:"team_id"`
	FairProbability float64 `json:"fair_probability"`
	QuotePrice      float64 `json:"quote_price"`
	Edge            float64 `json:"edge"`
	StakeAmount     float64 `json:"stake_amount"`
	LimitPrice      float64 `json:"limit_price"`
	Quantity        int     `json:"quantity"`
	FinalState      string  `json:"final_state"`
	FilledAmount    float64 `json:"filled_amount"`
	OrderID         string  `json:"order_id,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// NewTradeLog abre (o crea) el fichero con rotación por tamaño.
func NewTradeLog(path string, maxSizeMB, maxBackups int) *TradeLog {
	return &TradeLog{out: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     90,
		Compress:   true,
	}}
}

// NewTradeLogWriter crea un TradeLog sobre un writer arbitrario (tests).
func NewTradeLogWriter(w io.WriteCloser) *TradeLog {
	return &TradeLog{out: w}
}

// EmitTradeRecord implementa ports.RecordSink.
func (l *TradeLog) EmitTradeRecord(_ context.Context, r domain.TradeRecord) error {
	b, err := json.Marshal(tradeLine{
		Timestamp:       r.Timestamp.UTC().Format(time.RFC3339Nano),
		IntentID:        r.IntentID,
		Mode:            string(r.Mode),
		MarketID:        r.MarketID,
		GameID:          r.GameID,
		TeamID:          r.TeamID,
		FairProbability: r.FairProbability,
		QuotePrice:      r.QuotePrice,
		Edge:            r.Edge,
		StakeAmount:     r.StakeAmount,
		LimitPrice:      r.LimitPrice,
		Quantity:        r.Quantity,
		FinalState:      string(r.FinalState),
		FilledAmount:    r.FilledAmount,
		OrderID:         r.OrderID,
		Error:           r.Error,
	})
	if err != nil {
		return fmt.Errorf("notify.TradeLog: marshal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("notify.TradeLog: write: %w", err)
	}
	return nil
}

// Close cierra el fichero.
func (l *TradeLog) Close() error {
	return l.out.Close()
}
