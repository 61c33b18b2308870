package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

// Settler es la parte del risk ledger que cierra reservas.
type Settler interface {
	Commit(tok risk.Token, filled float64) error
	Release(tok risk.Token) error
}

// Dispatcher drives one intent through ADMITTED → SUBMITTING → terminal,
// settles its reservation exactly once and emits the trade record.
// Safe for concurrent use: each Dispatch owns its intent.
type Dispatcher struct {
	exec   Executor
	ledger Settler
	sink   ports.RecordSink
	retry  RetryPolicy
	now    func() time.Time
}

// NewDispatcher crea un Dispatcher. sink puede ser nil.
func NewDispatcher(exec Executor, ledger Settler, sink ports.RecordSink, retry RetryPolicy) *Dispatcher {
	return &Dispatcher{exec: exec, ledger: ledger, sink: sink, retry: retry, now: time.Now}
}

// Mode devuelve el modo del executor.
func (d *Dispatcher) Mode() domain.Mode { return d.exec.Mode() }

// Dispatch executes the intent and returns its terminal record. Errors are
// recorded in the record, never returned: every intent ends in a terminal state.
func (d *Dispatcher) Dispatch(ctx context.Context, intent domain.TradeIntent, tok risk.Token) domain.TradeRecord {
	if err := intent.Transition(domain.StateSubmitting); err != nil {
		// intent mal formado: se libera la reserva y se marca FAILED
		slog.Error("execution: cannot submit intent", "intent", intent.IntentID, "err", err)
		intent.State = domain.StateSubmitting
		return d.finish(ctx, intent, tok, domain.Fill{}, 0, err)
	}

	fill, attempts, err := d.retry.Do(ctx, "execution.submit "+intent.IntentID, func(ctx context.Context) (domain.Fill, error) {
		return d.exec.Execute(ctx, intent)
	})
	return d.finish(ctx, intent, tok, fill, attempts, err)
}

func (d *Dispatcher) finish(ctx context.Context, intent domain.TradeIntent, tok risk.Token, fill domain.Fill, attempts int, execErr error) domain.TradeRecord {
	final := domain.StateFailed
	if execErr == nil {
		final = fill.State
	}
	if !final.IsTerminal() {
		execErr = fmt.Errorf("execution: executor returned non-terminal state %q", final)
		final = domain.StateFailed
	}

	var settleErr error
	if final.Deployed() {
		settleErr = d.ledger.Commit(tok, fill.FilledAmount)
	} else {
		fill = domain.Fill{OrderID: fill.OrderID}
		settleErr = d.ledger.Release(tok)
	}
	if settleErr != nil {
		slog.Error("execution: ledger settlement failed",
			"intent", intent.IntentID,
			"state", final,
			"err", settleErr,
		)
		execErr = errors.Join(execErr, settleErr)
	}

	if err := intent.Transition(final); err != nil {
		slog.Error("execution: illegal transition", "intent", intent.IntentID, "err", err)
		intent.State = final
	}

	rec := domain.NewTradeRecord(intent, d.exec.Mode(), fill, attempts, execErr, d.now())
	logRecord(rec)

	if d.sink != nil {
		// el sink debe recibir el record aunque el ciclo se haya cancelado
		if err := d.sink.EmitTradeRecord(context.WithoutCancel(ctx), rec); err != nil {
			slog.Warn("execution: error emitting trade record", "intent", rec.IntentID, "err", err)
		}
	}
	return rec
}

func logRecord(rec domain.TradeRecord) {
	args := []any{
		"intent", rec.IntentID,
		"mode", rec.Mode,
		"team", rec.TeamID,
		"state", rec.FinalState,
		"qty", rec.FilledQuantity,
		"amount", rec.FilledAmount,
		"attempts", rec.Attempts,
	}
	switch rec.FinalState {
	case domain.StateFailed:
		slog.Warn("execution: intent FAILED", append(args, "err", rec.Error)...)
	case domain.StateRejectedByVenue:
		slog.Info("execution: intent rejected by venue", args...)
	default:
		slog.Info("execution: intent "+string(rec.FinalState), args...)
	}
}
