// Package feed lee los snapshots de mercado y las estimaciones de un fichero
// YAML que otro proceso reescribe en cada ciclo.
package feed

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// snapshotFile es el formato del fichero.
type snapshotFile struct {
	GeneratedAt time.Time       `yaml:"generated_at"`
	Markets     []marketEntry   `yaml:"markets"`
	Fair        []estimateEntry `yaml:"fair"`
	Research    []estimateEntry `yaml:"research"`
}

type marketEntry struct {
	MarketID string  `yaml:"market_id"`
	GameID   string  `yaml:"game_id"`
	TeamID   string  `yaml:"team_id"`
	YesPrice float64 `yaml:"yes_price"`
	Bid      float64 `yaml:"bid"`
	Ask      float64 `yaml:"ask"`
	Volume   float64 `yaml:"volume"`
	// StartsAt tiene prioridad sobre SecondsToStart.
	StartsAt       *time.Time `yaml:"starts_at"`
	SecondsToStart *float64   `yaml:"seconds_to_start"`
	Tie            bool       `yaml:"tie"`
}

type estimateEntry struct {
	GameID      string  `yaml:"game_id"`
	TeamID      string  `yaml:"team_id"`
	Probability float64 `yaml:"probability"`
	Confidence  string  `yaml:"confidence"`
}

type key struct{ game, team string }

// File implementa ports.MarketProvider, ports.FairProvider y ports.ResearchProvider.
// GetMarketSnapshots relee el fichero; las estimaciones se sirven del último snapshot leído.
type File struct {
	path string
	now  func() time.Time

	mu       sync.RWMutex
	loaded   bool
	fair     map[key]domain.FairEstimate
	research map[key]domain.ResearchAdjustment
}

// NewFile crea el provider sobre el fichero dado.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// GetMarketSnapshots relee el fichero y devuelve los mercados YES sin empates.
func (f *File) GetMarketSnapshots(ctx context.Context) ([]domain.MarketQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := f.read()
	if err != nil {
		return nil, err
	}

	now := f.now()
	quotes := make([]domain.MarketQuote, 0, len(snap.Markets))
	for _, m := range snap.Markets {
		if m.Tie || m.MarketID == "" {
			continue
		}
		q := domain.MarketQuote{
			MarketID: m.MarketID,
			GameID:   m.GameID,
			TeamID:   m.TeamID,
			YesPrice: m.YesPrice,
			Bid:      m.Bid,
			Ask:      m.Ask,
			Volume:   m.Volume,
		}
		switch {
		case m.StartsAt != nil:
			q.SecondsToStart = m.StartsAt.Sub(now).Seconds()
		case m.SecondsToStart != nil:
			q.SecondsToStart = *m.SecondsToStart
		}
		quotes = append(quotes, q)
	}

	fair := make(map[key]domain.FairEstimate, len(snap.Fair))
	for _, e := range snap.Fair {
		fair[key{e.GameID, e.TeamID}] = domain.FairEstimate{
			GameID:          e.GameID,
			TeamID:          e.TeamID,
			FairProbability: e.Probability,
			Confidence:      domain.ParseConfidence(e.Confidence),
		}
	}
	research := make(map[key]domain.ResearchAdjustment, len(snap.Research))
	for _, e := range snap.Research {
		research[key{e.GameID, e.TeamID}] = domain.ResearchAdjustment{
			Probability: e.Probability,
			Confidence:  domain.ParseConfidence(e.Confidence),
		}
	}

	f.mu.Lock()
	f.fair, f.research, f.loaded = fair, research, true
	f.mu.Unlock()
	return quotes, nil
}

// GetFairEstimate devuelve nil, nil si el par no tiene estimación.
func (f *File) GetFairEstimate(ctx context.Context, gameID, teamID string) (*domain.FairEstimate, error) {
	if err := f.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	est, ok := f.fair[key{gameID, teamID}]
	if !ok {
		return nil, nil
	}
	return &est, nil
}

// GetResearchAdjustment devuelve nil, nil si el par no tiene ajuste.
func (f *File) GetResearchAdjustment(ctx context.Context, gameID, teamID string) (*domain.ResearchAdjustment, error) {
	if err := f.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	adj, ok := f.research[key{gameID, teamID}]
	if !ok {
		return nil, nil
	}
	return &adj, nil
}

func (f *File) ensureLoaded(ctx context.Context) error {
	f.mu.RLock()
	loaded := f.loaded
	f.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := f.GetMarketSnapshots(ctx)
	return err
}

func (f *File) read() (snapshotFile, error) {
	var snap snapshotFile
	data, err := os.ReadFile(f.path)
	if err != nil {
		return snap, fmt.Errorf("feed.File: read %q: %w", f.path, err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("feed.File: parse %q: %w", f.path, err)
	}
	return snap, nil
}

// StaticBankroll implementa ports.BankrollProvider con un valor fijo (SHADOW).
type StaticBankroll float64

func (b StaticBankroll) Bankroll(context.Context) (float64, error) {
	return float64(b), nil
}
