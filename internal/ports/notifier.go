package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	NotifyCycle(ctx context.Context, summary domain.CycleSummary) error
}

// RecordSink recibe cada TradeRecord terminal exactamente una vez.
type RecordSink interface {
	EmitTradeRecord(ctx context.Context, rec domain.TradeRecord) error
}
