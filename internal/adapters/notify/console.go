package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// Con table=true imprime el decision log completo de cada ciclo.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCycle imprime el resumen del ciclo en el modo configurado.
func (c *Console) NotifyCycle(_ context.Context, s domain.CycleSummary) error {
	if s.Quotes == 0 {
		fmt.Fprintf(c.out, "[%s] %s no markets found\n", s.StartedAt.Local().Format("15:04:05"), s.Mode)
		return nil
	}
	if c.table {
		c.printFull(s)
	} else {
		c.printCompact(s)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(s domain.CycleSummary) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %d mkts → admitted:%d rejected:%d stake:$%.2f day:$%.2f/%s",
		s.StartedAt.Local().Format("15:04:05"), s.Mode, s.Quotes,
		s.Admitted, s.Rejected, s.StakeTotal, s.Ledger.CommittedToday, money(s.Bankroll))

	shown := 0
	for _, d := range s.Decisions {
		if shown >= 4 || !d.Admitted() {
			continue
		}
		fmt.Fprintf(&sb, " | %s edge%+.3f $%.2f@%.2f",
			d.Quote.TeamID, d.Edge.Edge, d.StakeAmount, d.Intent.LimitPrice)
		shown++
	}
	if s.Ledger.Halted {
		sb.WriteString(" | LEDGER HALTED")
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla del decision log.
func (c *Console) printFull(s domain.CycleSummary) {
	fmt.Fprintf(c.out, "\n[%s] cycle %s (%s): %d markets, %d admitted, %d rejected, %v\n",
		s.StartedAt.Local().Format("15:04:05"), domain.TruncateID(s.CycleID, 8), s.Mode,
		s.Quotes, s.Admitted, s.Rejected, s.Duration.Round(time.Millisecond))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Team", "Yes", "Fair", "Edge", "Stake", "Limit", "Qty", "Decision")
	for i, d := range s.Decisions {
		limit, qty := "-", "-"
		if d.Intent != nil {
			limit = fmt.Sprintf("%.2f", d.Intent.LimitPrice)
			qty = fmt.Sprintf("%d", d.Intent.Quantity)
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.TruncateID(d.Quote.MarketID, 28),
			d.Quote.TeamID,
			fmt.Sprintf("%.2f", d.Quote.YesPrice),
			fmt.Sprintf("%.3f", d.Edge.FairProbability),
			fmt.Sprintf("%+.3f", d.Edge.Edge),
			fmt.Sprintf("$%.2f", d.StakeAmount),
			limit,
			qty,
			decisionLabel(d),
		)
	}
	table.Render()

	l := s.Ledger
	fmt.Fprintf(c.out, "  Bankroll %s | today $%.2f (reserved $%.2f, committed $%.2f) | open tokens %d\n",
		money(l.Bankroll), l.CommittedToday, l.Reserved, l.Committed, l.OpenTokens)
	if l.Halted {
		fmt.Fprintln(c.out, "  ⚠ LEDGER HALTED, new admissions refused until restart")
	}
}

func decisionLabel(d domain.Decision) string {
	if d.Admitted() {
		return "ADMITTED"
	}
	if d.Reason == domain.RejectFilters && len(d.Edge.Reasons) > 0 {
		return "filters:" + d.ReasonCodes()
	}
	return string(d.Reason)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
