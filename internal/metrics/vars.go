package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

var (
	Cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "edgebot_cycles_total",
		Help: "Evaluation cycles whose admission phase completed",
	})

	CycleErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "edgebot_cycle_errors_total",
		Help: "Cycles aborted before admission (collaborator failures)",
	})

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgebot_cycle_duration_seconds",
		Help:    "Duration of the admission phase of a cycle",
		Buckets: prometheus.DefBuckets,
	})

	// reason: admitted | filters | below_threshold | zero_size | risk_cap | ledger_halted
	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edgebot_decisions_total",
		Help: "Admission decisions by outcome",
	}, []string{"reason"})

	// cap: per_bet | per_game | per_team | daily
	RiskCapBreaches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edgebot_risk_cap_breaches_total",
		Help: "Reservations refused, split by breached cap",
	}, []string{"cap"})

	Intents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edgebot_intents_total",
		Help: "Trade intents by mode and terminal state",
	}, []string{"mode", "state"})

	FilledUSD = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edgebot_filled_usd_total",
		Help: "Capital deployed by filled intents",
	}, []string{"mode"})

	VenueAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgebot_venue_attempts",
		Help:    "Submission attempts per intent",
		Buckets: []float64{1, 2, 3, 4, 5, 8},
	})

	// outcome: ok | transient | fatal
	VenueLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edgebot_venue_submit_seconds",
		Help:    "Latency of a single order submission to the venue",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	Bankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "edgebot_bankroll_usd",
		Help: "Bankroll used for the last cycle",
	})

	CommittedToday = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "edgebot_ledger_committed_today_usd",
		Help: "Risk ledger daily aggregate (reserved + committed)",
	})

	OpenReservations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "edgebot_ledger_open_reservations",
		Help: "Reservation tokens not yet committed or released",
	})

	LedgerHalted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "edgebot_ledger_halted",
		Help: "1 if the ledger refused new admissions after an invariant violation",
	})
)

func init() {
	prometheus.MustRegister(
		Cycles,
		CycleErrors,
		CycleDuration,
		Decisions,
		RiskCapBreaches,
		Intents,
		FilledUSD,
		VenueAttempts,
		VenueLatency,
		Bankroll,
		CommittedToday,
		OpenReservations,
		LedgerHalted,
	)
}

// ObserveCycle records the outcome of an admission phase.
func ObserveCycle(s domain.CycleSummary) {
	Cycles.Inc()
	CycleDuration.Observe(s.Duration.Seconds())
	Bankroll.Set(s.Bankroll)
	ObserveLedger(s.Ledger)

	for _, d := range s.Decisions {
		if d.Admitted() {
			Decisions.WithLabelValues("admitted").Inc()
			continue
		}
		if d.Reason.IsRiskCap() {
			Decisions.WithLabelValues("risk_cap").Inc()
			caps := strings.TrimPrefix(string(d.Reason), "risk_cap:")
			for _, c := range strings.Split(caps, ",") {
				RiskCapBreaches.WithLabelValues(c).Inc()
			}
			continue
		}
		Decisions.WithLabelValues(string(d.Reason)).Inc()
	}
}

// ObserveRecord records a terminal trade record.
func ObserveRecord(rec domain.TradeRecord) {
	Intents.WithLabelValues(string(rec.Mode), string(rec.FinalState)).Inc()
	if rec.FinalState.Deployed() {
		FilledUSD.WithLabelValues(string(rec.Mode)).Add(rec.FilledAmount)
	}
	if rec.Attempts > 0 {
		VenueAttempts.Observe(float64(rec.Attempts))
	}
}

// ObserveSubmit records one venue submission.
func ObserveSubmit(d time.Duration, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case domain.IsTransient(err):
		outcome = "transient"
	default:
		outcome = "fatal"
	}
	VenueLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveLedger copies the ledger gauges.
func ObserveLedger(snap domain.LedgerSnapshot) {
	CommittedToday.Set(snap.CommittedToday)
	OpenReservations.Set(float64(snap.OpenTokens))
	if snap.Halted {
		LedgerHalted.Set(1)
	} else {
		LedgerHalted.Set(0)
	}
}
