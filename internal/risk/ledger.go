// Package risk implements the process-wide risk ledger: exposure per bet,
// game, team and day, with atomic check-and-reserve semantics.
package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Limits are the four caps as fractions of bankroll.
type Limits struct {
	PerBetPct  float64
	PerGamePct float64
	PerTeamPct float64
	DailyPct   float64
}

// Token is the single-use handle of one reservation.
type Token struct {
	ID       string
	IntentID string
	Amount   float64
}

type entryStatus int

const (
	statusReserved entryStatus = iota
	statusCommitted
)

type entry struct {
	tokenID string
	gameID  string
	teamID  string
	amount  decimal.Decimal
	status  entryStatus
}

// Ledger tracks committed and reserved capital. All methods are safe for
// concurrent use; every mutation happens inside one critical section.
type Ledger struct {
	mu sync.Mutex

	limits   Limits
	bankroll decimal.Decimal

	byBet  map[string]*entry // intent_id → entry
	byGame map[string]decimal.Decimal
	byTeam map[string]decimal.Decimal
	today  decimal.Decimal
	day    time.Time

	open  map[string]string   // token_id → intent_id
	spent map[string]struct{} // tokens consumidos hoy; se vacía en el rollover

	halted bool
	now    func() time.Time
}

// NewLedger creates a ledger for the given bankroll (USD).
func NewLedger(limits Limits, bankroll float64) *Ledger {
	l := &Ledger{
		limits:   limits,
		bankroll: usd(bankroll),
		byBet:    make(map[string]*entry),
		byGame:   make(map[string]decimal.Decimal),
		byTeam:   make(map[string]decimal.Decimal),
		today:    decimal.Zero,
		open:     make(map[string]string),
		spent:    make(map[string]struct{}),
		now:      time.Now,
	}
	l.day = dayOf(l.now())
	return l
}

// WithClock replaces the wall clock used for the daily rollover.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	l.day = dayOf(now())
	return l
}

// SetBankroll updates the bankroll the caps are computed from.
func (l *Ledger) SetBankroll(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bankroll = usd(amount)
}

// Bankroll returns the current bankroll.
func (l *Ledger) Bankroll() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bankroll.InexactFloat64()
}

// Halted reports whether an invariant violation stopped new reservations.
func (l *Ledger) Halted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.halted
}

// Reserve checks all four caps against the intent's stake added to current
// commitments. Only if every cap holds is the reservation recorded; on failure
// the ledger is untouched and a *domain.RiskLimitExceeded names every breach.
func (l *Ledger) Reserve(intent domain.TradeIntent) (Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.halted {
		return Token{}, domain.ErrLedgerHalted
	}
	l.rollover()

	// un intent repetido viene de datos de entrada, no de un fallo del ledger
	if _, dup := l.byBet[intent.IntentID]; dup {
		return Token{}, fmt.Errorf("risk.Reserve: intent %s: %w", intent.IntentID, domain.ErrDuplicateIntent)
	}

	stake := usd(intent.StakeAmount)
	if !stake.IsPositive() {
		return Token{}, fmt.Errorf("risk.Reserve: stake must be positive, got %s", stake)
	}

	var breached []domain.RiskCap
	if stake.GreaterThan(l.cap(l.limits.PerBetPct)) {
		breached = append(breached, domain.CapPerBet)
	}
	if l.byGame[intent.GameID].Add(stake).GreaterThan(l.cap(l.limits.PerGamePct)) {
		breached = append(breached, domain.CapPerGame)
	}
	if l.byTeam[intent.TeamID].Add(stake).GreaterThan(l.cap(l.limits.PerTeamPct)) {
		breached = append(breached, domain.CapPerTeam)
	}
	if l.today.Add(stake).GreaterThan(l.cap(l.limits.DailyPct)) {
		breached = append(breached, domain.CapDaily)
	}
	if len(breached) > 0 {
		return Token{}, &domain.RiskLimitExceeded{Caps: breached}
	}

	tok := Token{ID: uuid.NewString(), IntentID: intent.IntentID, Amount: stake.InexactFloat64()}
	l.byBet[intent.IntentID] = &entry{
		tokenID: tok.ID,
		gameID:  intent.GameID,
		teamID:  intent.TeamID,
		amount:  stake,
		status:  statusReserved,
	}
	l.byGame[intent.GameID] = l.byGame[intent.GameID].Add(stake)
	l.byTeam[intent.TeamID] = l.byTeam[intent.TeamID].Add(stake)
	l.today = l.today.Add(stake)
	l.open[tok.ID] = intent.IntentID

	if err := l.verify(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Commit converts the reservation into a permanent commitment of the amount
// actually filled. The unused remainder is released. A fill above the
// reserved amount is clamped to the reservation.
func (l *Ledger) Commit(tok Token, filled float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.consume(tok, "commit")
	if err != nil {
		return err
	}

	amount := usd(filled)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(e.amount) {
		slog.Warn("risk: fill exceeds reservation, clamping",
			"intent", tok.IntentID,
			"reserved", e.amount.StringFixed(2),
			"filled", amount.StringFixed(2),
		)
		amount = e.amount
	}

	l.subtract(e, e.amount.Sub(amount))
	e.amount = amount
	e.status = statusCommitted
	if amount.IsZero() {
		delete(l.byBet, tok.IntentID)
	}

	l.rollover()
	return l.verify()
}

// Release frees the reservation without residual effect.
func (l *Ledger) Release(tok Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.consume(tok, "release")
	if err != nil {
		return err
	}
	l.subtract(e, e.amount)
	delete(l.byBet, tok.IntentID)

	l.rollover()
	return l.verify()
}

// Snapshot returns a read-only copy of the ledger totals.
func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()

	snap := domain.LedgerSnapshot{
		Bankroll:       l.bankroll.InexactFloat64(),
		CommittedToday: l.today.InexactFloat64(),
		OpenTokens:     len(l.open),
		ByGame:         make(map[string]float64, len(l.byGame)),
		ByTeam:         make(map[string]float64, len(l.byTeam)),
		DayBoundary:    l.day,
		Halted:         l.halted,
	}
	reserved, committed := decimal.Zero, decimal.Zero
	for _, e := range l.byBet {
		if e.status == statusReserved {
			reserved = reserved.Add(e.amount)
		} else {
			committed = committed.Add(e.amount)
		}
	}
	snap.Reserved = reserved.InexactFloat64()
	snap.Committed = committed.InexactFloat64()
	for g, v := range l.byGame {
		snap.ByGame[g] = v.InexactFloat64()
	}
	for t, v := range l.byTeam {
		snap.ByTeam[t] = v.InexactFloat64()
	}
	return snap
}

// consume validates and spends a token. Must hold l.mu.
func (l *Ledger) consume(tok Token, op string) (*entry, error) {
	if _, used := l.spent[tok.ID]; used {
		l.halt("token reused", "op", op, "intent", tok.IntentID, "token", tok.ID)
		return nil, fmt.Errorf("risk.%s: token %s already used: %w", op, tok.ID, domain.ErrLedgerInvariant)
	}
	intentID, ok := l.open[tok.ID]
	if !ok || intentID != tok.IntentID {
		l.halt("unknown token", "op", op, "intent", tok.IntentID, "token", tok.ID)
		return nil, fmt.Errorf("risk.%s: unknown token %s: %w", op, tok.ID, domain.ErrLedgerInvariant)
	}
	e, ok := l.byBet[intentID]
	if !ok || e.tokenID != tok.ID || e.status != statusReserved {
		l.halt("token without reservation", "op", op, "intent", intentID)
		return nil, fmt.Errorf("risk.%s: no reservation for %s: %w", op, intentID, domain.ErrLedgerInvariant)
	}
	delete(l.open, tok.ID)
	l.spent[tok.ID] = struct{}{}
	return e, nil
}

// subtract removes amount of e from the game, team and daily totals.
func (l *Ledger) subtract(e *entry, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	l.byGame[e.gameID] = l.byGame[e.gameID].Sub(amount)
	if l.byGame[e.gameID].IsZero() {
		delete(l.byGame, e.gameID)
	}
	l.byTeam[e.teamID] = l.byTeam[e.teamID].Sub(amount)
	if l.byTeam[e.teamID].IsZero() {
		delete(l.byTeam, e.teamID)
	}
	l.today = l.today.Sub(amount)
}

// rollover clears terminal commitments once the local date advances.
// In-flight reservations survive and count towards the new day.
func (l *Ledger) rollover() {
	today := dayOf(l.now())
	if !today.After(l.day) {
		return
	}
	cleared := 0
	for id, e := range l.byBet {
		if e.status != statusCommitted {
			continue
		}
		l.subtract(e, e.amount)
		delete(l.byBet, id)
		cleared++
	}
	// un token de un día anterior ya no está en open: consume lo sigue
	// rechazando como desconocido
	clear(l.spent)
	slog.Info("risk: daily rollover",
		"from", l.day.Format(time.DateOnly),
		"to", today.Format(time.DateOnly),
		"cleared", cleared,
		"in_flight", len(l.open),
	)
	l.day = today
}

// verify checks sum(byBet) == today == sum(byGame) == sum(byTeam).
func (l *Ledger) verify() error {
	sumBet := decimal.Zero
	for _, e := range l.byBet {
		if e.amount.IsNegative() {
			l.halt("negative entry", "amount", e.amount.String())
			return fmt.Errorf("risk: negative entry: %w", domain.ErrLedgerInvariant)
		}
		sumBet = sumBet.Add(e.amount)
	}
	sumGame, sumTeam := decimal.Zero, decimal.Zero
	for _, v := range l.byGame {
		sumGame = sumGame.Add(v)
	}
	for _, v := range l.byTeam {
		sumTeam = sumTeam.Add(v)
	}
	if !sumBet.Equal(l.today) || !sumGame.Equal(l.today) || !sumTeam.Equal(l.today) {
		l.halt("inconsistent totals",
			"by_bet", sumBet.String(),
			"by_game", sumGame.String(),
			"by_team", sumTeam.String(),
			"today", l.today.String(),
		)
		return fmt.Errorf("risk: inconsistent totals: %w", domain.ErrLedgerInvariant)
	}
	return nil
}

func (l *Ledger) halt(msg string, args ...any) {
	l.halted = true
	slog.Error("risk: LEDGER HALTED: "+msg, args...)
}

func (l *Ledger) cap(pct float64) decimal.Decimal {
	return l.bankroll.Mul(decimal.NewFromFloat(pct))
}

// usd convierte a centavos truncando.
func usd(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Truncate(2)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
