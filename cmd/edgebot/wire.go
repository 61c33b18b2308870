package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/edgebot/config"
	"github.com/alejandrodnm/edgebot/internal/adapters/feed"
	"github.com/alejandrodnm/edgebot/internal/adapters/kalshi"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/application/admission"
	"github.com/alejandrodnm/edgebot/internal/application/engine"
	"github.com/alejandrodnm/edgebot/internal/application/execution"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/risk"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

// app agrupa el engine y los recursos que hay que cerrar al salir.
type app struct {
	engine   *engine.Engine
	tradeLog *notify.TradeLog
}

func (a *app) Close() {
	if a.tradeLog != nil {
		_ = a.tradeLog.Close()
	}
}

// build conecta feed, ledger, admisión, executor y sinks según el modo.
func build(cfg *config.Config, store *storage.SQLiteStorage, console *notify.Console) (*app, error) {
	a := &app{}

	sink := notify.MultiSink{store}
	if cfg.TradeLog.Path != "" {
		a.tradeLog = notify.NewTradeLog(cfg.TradeLog.Path, cfg.TradeLog.MaxSizeMB, cfg.TradeLog.MaxBackups)
		sink = append(sink, a.tradeLog)
	}

	ledger := risk.NewLedger(risk.Limits{
		PerBetPct:  cfg.Risk.MaxPerBetPct,
		PerGamePct: cfg.Risk.MaxPerGamePct,
		PerTeamPct: cfg.Risk.MaxPerTeamPct,
		DailyPct:   cfg.Risk.MaxDailyRiskPct,
	}, 0)

	ctrl := admission.NewController(admission.Config{
		EdgeThreshold: cfg.Strategy.EdgeThreshold,
		Slippage:      cfg.Strategy.SlippageTolerance,
		Filters: strategy.Filters{
			MinVolume:         cfg.Strategy.MinMarketVolume,
			MaxSpread:         cfg.Strategy.MaxSpread,
			MinMinutesToStart: cfg.Strategy.MinTimeToStartMinutes,
		},
		Sizing: strategy.SizingConfig{
			KellyFactor:   cfg.Strategy.KellyFactor,
			MaxPerBetPct:  cfg.Risk.MaxPerBetPct,
			ConfidenceMul: confidenceMap(cfg.Strategy.ConfidenceMultipliers),
		},
	}, ledger)

	source := feed.NewFile(cfg.Feed.Path)
	deps := engine.Deps{
		Markets:  source,
		Fair:     source,
		Research: source,
		Store:    store,
		Notifier: console,
	}

	var exec execution.Executor
	if cfg.Live() {
		signer, err := kalshi.NewSigner(cfg.Kalshi.APIKey, cfg.Kalshi.APISecret)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		client := kalshi.NewClient(cfg.Kalshi.BaseURL, signer)
		exec = execution.NewLiveExecutor(client)
		deps.Bankroll = client
		slog.Warn("LIVE mode: orders will be sent to the venue", "base_url", cfg.Kalshi.BaseURL)
	} else {
		exec = execution.NewShadowExecutor()
		deps.Bankroll = feed.StaticBankroll(cfg.Risk.ShadowBankroll)
	}

	retry := execution.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      time.Duration(cfg.Retry.BaseDelayMillis) * time.Millisecond,
		MaxDelay:       time.Duration(cfg.Retry.MaxDelayMillis) * time.Millisecond,
		Jitter:         cfg.Retry.Jitter,
		AttemptTimeout: time.Duration(cfg.Retry.AttemptTimeoutSeconds) * time.Second,
	}
	dispatcher := execution.NewDispatcher(exec, ledger, ports.RecordSink(sink), retry)

	a.engine = engine.New(deps, engine.Config{
		CollaboratorTimeout: time.Duration(cfg.Engine.CollaboratorTimeoutSeconds) * time.Second,
		FetchWorkers:        cfg.Engine.FetchWorkers,
		MaxConcurrentOrders: cfg.Engine.MaxConcurrentOrders,
		Blend:               blendWeights(cfg.Strategy.ResearchWeights),
	}, ledger, ctrl, dispatcher)

	return a, nil
}

// blendWeights aplica los pesos configurados sobre los defaults.
func blendWeights(cfg map[string]float64) strategy.BlendWeights {
	w := strategy.DefaultBlendWeights()
	for k, v := range cfg {
		w[domain.Confidence(k)] = v
	}
	return w
}

func confidenceMap(cfg map[string]float64) map[domain.Confidence]float64 {
	if len(cfg) == 0 {
		return nil
	}
	m := make(map[domain.Confidence]float64, len(cfg))
	for k, v := range cfg {
		m[domain.Confidence(k)] = v
	}
	return m
}
