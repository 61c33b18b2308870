// Package engine corre los ciclos de evaluación: obtiene snapshots y
// estimaciones de los colaboradores, admite intents y los despacha.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/edgebot/internal/application/admission"
	"github.com/alejandrodnm/edgebot/internal/application/execution"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/metrics"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/risk"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

const (
	defaultCollaboratorTimeout = 10 * time.Second
	defaultFetchWorkers        = 8
	defaultMaxConcurrentOrders = 4
)

// Config holds engine-level settings.
type Config struct {
	CollaboratorTimeout time.Duration // timeout de cada llamada a un colaborador
	FetchWorkers        int           // llamadas concurrentes a fair/research
	MaxConcurrentOrders int           // intents ejecutándose a la vez por ciclo
	Blend               strategy.BlendWeights
}

// Deps agrupa los colaboradores del engine. Research, Store y Notifier son opcionales.
type Deps struct {
	Markets  ports.MarketProvider
	Fair     ports.FairProvider
	Research ports.ResearchProvider
	Bankroll ports.BankrollProvider
	Store    ports.Storage
	Notifier ports.Notifier
}

// Engine owns the ledger, admission controller and dispatcher.
type Engine struct {
	deps       Deps
	cfg        Config
	ledger     *risk.Ledger
	admission  *admission.Controller
	dispatcher *execution.Dispatcher

	// admitMu serializa la fase de admisión entre ciclos.
	admitMu sync.Mutex

	inflight sync.WaitGroup
	execCtx  context.Context
	cancel   context.CancelFunc
}

// New crea el engine. El dispatcher determina el modo (SHADOW/LIVE).
func New(deps Deps, cfg Config, ledger *risk.Ledger, ctrl *admission.Controller, dispatcher *execution.Dispatcher) *Engine {
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = defaultFetchWorkers
	}
	if cfg.MaxConcurrentOrders <= 0 {
		cfg.MaxConcurrentOrders = defaultMaxConcurrentOrders
	}
	if cfg.Blend == nil {
		cfg.Blend = strategy.DefaultBlendWeights()
	}
	execCtx, cancel := context.WithCancel(context.Background())
	return &Engine{
		deps:       deps,
		cfg:        cfg,
		ledger:     ledger,
		admission:  ctrl,
		dispatcher: dispatcher,
		execCtx:    execCtx,
		cancel:     cancel,
	}
}

// Ledger expone el ledger para reportes.
func (e *Engine) Ledger() *risk.Ledger { return e.ledger }

// RunCycle runs one evaluation cycle. It returns once the admission phase is
// done; admitted intents keep executing in the background (see Wait).
// A new cycle never starts its admission phase before the previous one ended.
func (e *Engine) RunCycle(ctx context.Context) (domain.CycleSummary, error) {
	e.admitMu.Lock()
	defer e.admitMu.Unlock()

	start := time.Now()
	cycleID := uuid.NewString()
	summary := domain.CycleSummary{CycleID: cycleID, StartedAt: start.UTC(), Mode: e.dispatcher.Mode()}

	bankroll, err := e.fetchBankroll(ctx)
	if err != nil {
		metrics.CycleErrors.Inc()
		return summary, fmt.Errorf("engine.RunCycle: bankroll: %w", err)
	}
	e.ledger.SetBankroll(bankroll)
	summary.Bankroll = bankroll

	quotes, err := e.fetchQuotes(ctx)
	if err != nil {
		metrics.CycleErrors.Inc()
		return summary, fmt.Errorf("engine.RunCycle: markets: %w", err)
	}
	summary.Quotes = len(quotes)

	candidates := e.buildCandidates(ctx, quotes)
	res := e.admission.Admit(cycleID, bankroll, candidates)

	summary.Decisions = res.Decisions
	for _, d := range res.Decisions {
		if d.Admitted() {
			summary.Admitted++
			summary.StakeTotal += d.StakeAmount
		} else {
			summary.Rejected++
		}
	}
	summary.Duration = time.Since(start)
	summary.Ledger = e.ledger.Snapshot()
	metrics.ObserveCycle(summary)

	slog.Info("engine: cycle admitted",
		"cycle", cycleID,
		"mode", summary.Mode,
		"quotes", summary.Quotes,
		"admitted", summary.Admitted,
		"rejected", summary.Rejected,
		"stake", summary.StakeTotal,
		"committed_today", summary.Ledger.CommittedToday,
		"duration", summary.Duration.Round(time.Millisecond),
	)

	e.dispatchAll(res.Admitted)

	if e.deps.Store != nil {
		if err := e.deps.Store.SaveCycle(ctx, summary); err != nil {
			slog.Warn("engine: error saving cycle", "cycle", cycleID, "err", err)
		}
	}
	if e.deps.Notifier != nil {
		if err := e.deps.Notifier.NotifyCycle(ctx, summary); err != nil {
			slog.Warn("engine: error notifying cycle", "err", err)
		}
	}
	return summary, nil
}

// Wait blocks until every dispatched intent reached a terminal state.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Shutdown waits for in-flight executions up to ctx's deadline, then cancels them.
// Cancelled intents still end FAILED and release their reservation.
func (e *Engine) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("engine: shutdown deadline reached, cancelling in-flight executions")
		e.cancel()
		<-done
	}
	e.cancel()
}

// dispatchAll ejecuta los intents admitidos en background con concurrencia limitada.
func (e *Engine) dispatchAll(admitted []admission.Admission) {
	if len(admitted) == 0 {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		var g errgroup.Group
		g.SetLimit(e.cfg.MaxConcurrentOrders)
		for _, adm := range admitted {
			g.Go(func() error {
				rec := e.dispatcher.Dispatch(e.execCtx, adm.Intent, adm.Token)
				metrics.ObserveRecord(rec)
				return nil
			})
		}
		_ = g.Wait()
		metrics.ObserveLedger(e.ledger.Snapshot())
	}()
}

func (e *Engine) fetchBankroll(ctx context.Context) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	defer cancel()
	b, err := e.deps.Bankroll.Bankroll(cctx)
	if err != nil {
		return 0, err
	}
	if b <= 0 {
		return 0, fmt.Errorf("non-positive bankroll %.2f", b)
	}
	return b, nil
}

func (e *Engine) fetchQuotes(ctx context.Context) ([]domain.MarketQuote, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	defer cancel()
	return e.deps.Markets.GetMarketSnapshots(cctx)
}

// buildCandidates consulta fair y research para cada quote en paralelo.
// Un error del colaborador se trata como estimación ausente.
func (e *Engine) buildCandidates(ctx context.Context, quotes []domain.MarketQuote) []admission.Candidate {
	candidates := make([]admission.Candidate, len(quotes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FetchWorkers)
	for i, q := range quotes {
		g.Go(func() error {
			candidates[i] = admission.Candidate{Quote: q, Estimate: e.estimate(gctx, q)}
			return nil
		})
	}
	_ = g.Wait()
	return candidates
}

func (e *Engine) estimate(ctx context.Context, q domain.MarketQuote) *domain.FairEstimate {
	fctx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	est, err := e.deps.Fair.GetFairEstimate(fctx, q.GameID, q.TeamID)
	cancel()
	if err != nil {
		slog.Warn("engine: fair estimate unavailable", "market", q.MarketID, "err", err)
		return nil
	}
	if est == nil || e.deps.Research == nil {
		return est
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	adj, err := e.deps.Research.GetResearchAdjustment(rctx, q.GameID, q.TeamID)
	cancel()
	if err != nil {
		slog.Debug("engine: research unavailable", "market", q.MarketID, "err", err)
		return est
	}
	blended := strategy.Blend(*est, adj, e.cfg.Blend)
	return &blended
}
