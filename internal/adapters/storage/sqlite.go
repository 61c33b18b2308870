package storage

// sqlite.go: persistencia del bot.
//
// Tablas:
//   - `cycles`: una fila por ciclo con los totales de la fase de admisión.
//   - `decisions`: decision log de cada ciclo, una fila por candidato en orden
//     de procesamiento (seq). Un market_id repetido en el snapshot ocupa dos filas.
//   - `trade_records`: append-only, una fila por intent terminal (write-once).
//   - `daily`: resumen por día, upsert desde el job diario.
//   - Prune automático al arrancar: cycles/decisions > 30d. Los trade records no se borran.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    cycle_id        TEXT PRIMARY KEY,
    started_at      TEXT    NOT NULL,
    mode            TEXT    NOT NULL,
    bankroll        REAL    NOT NULL DEFAULT 0,
    quotes          INTEGER NOT NULL DEFAULT 0,
    admitted        INTEGER NOT NULL DEFAULT 0,
    rejected        INTEGER NOT NULL DEFAULT 0,
    stake_total     REAL    NOT NULL DEFAULT 0,
    committed_today REAL    NOT NULL DEFAULT 0,
    duration_ms     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS decisions (
    cycle_id   TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    market_id  TEXT NOT NULL,
    game_id    TEXT,
    team_id    TEXT,
    yes_price  REAL NOT NULL DEFAULT 0,
    fair_prob  REAL NOT NULL DEFAULT 0,
    edge       REAL NOT NULL DEFAULT 0,
    state      TEXT NOT NULL,
    reason     TEXT,
    codes      TEXT,
    stake      REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (cycle_id, seq)
);

CREATE TABLE IF NOT EXISTS trade_records (
    intent_id        TEXT PRIMARY KEY,
    cycle_id         TEXT NOT NULL,
    ts               TEXT NOT NULL,
    mode             TEXT NOT NULL,
    market_id        TEXT NOT NULL,
    game_id          TEXT,
    team_id          TEXT,
    fair_probability REAL NOT NULL,
    quote_price      REAL NOT NULL,
    edge             REAL NOT NULL,
    stake_amount     REAL NOT NULL,
    limit_price      REAL NOT NULL,
    quantity         INTEGER NOT NULL,
    final_state      TEXT NOT NULL,
    filled_quantity  INTEGER NOT NULL DEFAULT 0,
    filled_amount    REAL NOT NULL DEFAULT 0,
    order_id         TEXT,
    attempts         INTEGER NOT NULL DEFAULT 0,
    error            TEXT
);

CREATE TABLE IF NOT EXISTS daily (
    date            TEXT PRIMARY KEY,
    cycles          INTEGER NOT NULL DEFAULT 0,
    admitted        INTEGER NOT NULL DEFAULT 0,
    rejected        INTEGER NOT NULL DEFAULT 0,
    filled          INTEGER NOT NULL DEFAULT 0,
    partial         INTEGER NOT NULL DEFAULT 0,
    failed          INTEGER NOT NULL DEFAULT 0,
    venue_rejected  INTEGER NOT NULL DEFAULT 0,
    stake_total     REAL NOT NULL DEFAULT 0,
    filled_total    REAL NOT NULL DEFAULT 0,
    committed_today REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cycles_at   ON cycles(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_ts   ON trade_records(ts DESC);
CREATE INDEX IF NOT EXISTS idx_trades_team ON trade_records(team_id);
`

const (
	retentionCycles = 30 * 24 * time.Hour
	dateLayout      = "2006-01-02"
	// tsLayout tiene ancho fijo para que las comparaciones de texto respeten el orden.
	tsLayout = "2006-01-02T15:04:05.000000Z"
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveCycle persiste el resumen del ciclo y su decision log en una transacción.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, c domain.CycleSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cycles
			(cycle_id, started_at, mode, bankroll, quotes, admitted, rejected,
			 stake_total, committed_today, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CycleID, ts(c.StartedAt), string(c.Mode), c.Bankroll, c.Quotes,
		c.Admitted, c.Rejected, c.StakeTotal, c.Ledger.CommittedToday,
		c.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert cycle: %w", err)
	}

	if len(c.Decisions) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO decisions
				(cycle_id, seq, market_id, game_id, team_id, yes_price, fair_prob,
				 edge, state, reason, codes, stake)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage.SaveCycle: prepare: %w", err)
		}
		defer stmt.Close()

		for i, d := range c.Decisions {
			if _, err := stmt.ExecContext(ctx,
				c.CycleID, i, d.Quote.MarketID, d.Quote.GameID, d.Quote.TeamID,
				d.Quote.YesPrice, d.Edge.FairProbability, d.Edge.Edge,
				string(d.State), string(d.Reason), d.ReasonCodes(), d.StakeAmount,
			); err != nil {
				return fmt.Errorf("storage.SaveCycle: insert decision %s: %w", d.Quote.MarketID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCycle: commit: %w", err)
	}
	return nil
}

// GetDecisions devuelve el decision log de un ciclo en orden de procesamiento.
func (s *SQLiteStorage) GetDecisions(ctx context.Context, cycleID string) ([]domain.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, game_id, team_id, yes_price, fair_prob, edge, state, reason, stake
		FROM decisions WHERE cycle_id = ?
		ORDER BY seq ASC`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetDecisions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		d := domain.Decision{CycleID: cycleID}
		var state, reason string
		var game, team sql.NullString
		if err := rows.Scan(&d.Quote.MarketID, &game, &team, &d.Quote.YesPrice,
			&d.Edge.FairProbability, &d.Edge.Edge, &state, &reason, &d.StakeAmount); err != nil {
			return nil, fmt.Errorf("storage.GetDecisions: scan row: %w", err)
		}
		d.Quote.GameID, d.Quote.TeamID = game.String, team.String
		d.Edge.MarketID = d.Quote.MarketID
		d.Edge.YesPrice = d.Quote.YesPrice
		d.State = domain.AdmissionState(state)
		d.Reason = domain.RejectReason(reason)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina ciclos y decisiones antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := ts(time.Now().Add(-retentionCycles))
	s.db.ExecContext(ctx, `DELETE FROM decisions WHERE cycle_id IN (SELECT cycle_id FROM cycles WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, cutoff)
}

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}
