package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DailyJob persiste el resumen del día anterior.
type DailyJob func(ctx context.Context, day time.Time) error

// Runner dispara RunCycle periódicamente y el resumen diario a medianoche.
// Si un ciclo sigue en admisión cuando llega el siguiente tick, el tick se salta.
type Runner struct {
	engine  *Engine
	cron    *cron.Cron
	baseCtx context.Context
}

// NewRunner crea el runner sobre el contexto base del proceso.
func NewRunner(ctx context.Context, e *Engine) *Runner {
	logger := cron.PrintfLogger(slogPrintf{})
	return &Runner{
		engine: e,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		baseCtx: ctx,
	}
}

// Every registra el ciclo de evaluación con el intervalo dado.
func (r *Runner) Every(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("engine.Runner: invalid interval %s", interval)
	}
	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), r.tick)
	if err != nil {
		return fmt.Errorf("engine.Runner: schedule cycle: %w", err)
	}
	return nil
}

// Daily registra job a las 00:00:05 para el día que acaba de terminar.
func (r *Runner) Daily(job DailyJob) error {
	_, err := r.cron.AddFunc("5 0 0 * * *", func() {
		yesterday := time.Now().AddDate(0, 0, -1)
		if err := job(r.baseCtx, yesterday); err != nil {
			slog.Warn("engine: daily job failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("engine.Runner: schedule daily: %w", err)
	}
	return nil
}

// Start corre un primer ciclo inmediatamente y arranca el scheduler.
func (r *Runner) Start() {
	r.tick()
	slog.Info("engine: scheduler started", "entries", len(r.cron.Entries()))
	r.cron.Start()
}

// Stop detiene el scheduler y espera a los jobs en curso.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("engine: scheduler stopped")
}

func (r *Runner) tick() {
	if r.baseCtx.Err() != nil {
		return
	}
	if _, err := r.engine.RunCycle(r.baseCtx); err != nil {
		slog.Warn("engine: cycle failed", "err", err)
	}
}

// slogPrintf adapta slog al logger de cron.
type slogPrintf struct{}

func (slogPrintf) Printf(format string, args ...any) {
	slog.Debug("cron: " + fmt.Sprintf(format, args...))
}
