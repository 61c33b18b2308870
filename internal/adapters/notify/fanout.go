package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

// MultiSink reenvía cada record a todos los sinks; los errores se acumulan.
type MultiSink []ports.RecordSink

func (m MultiSink) EmitTradeRecord(ctx context.Context, rec domain.TradeRecord) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.EmitTradeRecord(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
