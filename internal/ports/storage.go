package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Storage persiste ciclos, decisiones y trade records.
type Storage interface {
	RecordSink

	// SaveCycle persiste el resumen del ciclo y su decision log.
	SaveCycle(ctx context.Context, summary domain.CycleSummary) error

	SaveDaily(ctx context.Context, d domain.DailySummary) error
	GetDailies(ctx context.Context) ([]domain.DailySummary, error)

	// BuildDaily agrega ciclos y trades del día dado (UTC).
	BuildDaily(ctx context.Context, day time.Time) (domain.DailySummary, error)

	// GetTradeStats agrega los trade records en el rango dado.
	GetTradeStats(ctx context.Context, from, to time.Time) (domain.TradeStats, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
