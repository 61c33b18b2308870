package notify

import (
	"fmt"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// ReportInput agrupa los datos necesarios para imprimir el reporte.
type ReportInput struct {
	Stats   domain.TradeStats
	Dailies []domain.DailySummary
	Ledger  *domain.LedgerSnapshot // nil fuera del proceso del bot
}

// PrintReport imprime el informe de trade records y resúmenes diarios.
func (c *Console) PrintReport(in ReportInput) {
	st := in.Stats
	fmt.Fprintf(c.out, "\n=== TRADE REPORT %s → %s ===\n\n",
		st.From.Format("2006-01-02"), st.To.Format("2006-01-02"))

	fmt.Fprintf(c.out, "  Intents:      %d\n", st.Total)
	fmt.Fprintf(c.out, "  Filled:       %d | Partial: %d | Venue rejected: %d | Failed: %d\n",
		st.ByState[domain.StateFilled], st.ByState[domain.StatePartiallyFilled],
		st.ByState[domain.StateRejectedByVenue], st.ByState[domain.StateFailed])
	fmt.Fprintf(c.out, "  Stake:        $%.2f reserved, $%.2f deployed\n", st.StakeTotal, st.FilledTotal)
	if st.Total > 0 {
		fmt.Fprintf(c.out, "  Averages:     edge %.3f | fair %.3f | price %.3f\n",
			st.AvgEdge, st.AvgFairProb, st.AvgQuotePrice)
	}

	if in.Ledger != nil {
		l := in.Ledger
		fmt.Fprintf(c.out, "  Ledger:       today $%.2f of %s bankroll (%d open)\n",
			l.CommittedToday, money(l.Bankroll), l.OpenTokens)
	}

	fmt.Fprintf(c.out, "\n── RECENT TRADES (%d) ──\n", len(st.Recent))
	if len(st.Recent) == 0 {
		fmt.Fprintln(c.out, "  (none)")
	} else {
		table := tablewriter.NewWriter(c.out)
		table.Header("Time", "Mode", "Team", "Market", "Edge", "Stake", "Filled", "State")
		for _, r := range st.Recent {
			table.Append(
				r.Timestamp.Local().Format("01-02 15:04"),
				string(r.Mode),
				r.TeamID,
				domain.TruncateID(r.MarketID, 24),
				fmt.Sprintf("%+.3f", r.Edge),
				fmt.Sprintf("$%.2f", r.StakeAmount),
				fmt.Sprintf("$%.2f", r.FilledAmount),
				string(r.FinalState),
			)
		}
		table.Render()
	}

	fmt.Fprintf(c.out, "\n── DAILY (%d days) ──\n", len(in.Dailies))
	if len(in.Dailies) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Cycles", "Admitted", "Rejected", "Filled", "Failed", "Stake", "Deployed")
	for _, d := range in.Dailies {
		table.Append(
			d.Date.Format("2006-01-02"),
			fmt.Sprintf("%d", d.Cycles),
			fmt.Sprintf("%d", d.Admitted),
			fmt.Sprintf("%d", d.Rejected),
			fmt.Sprintf("%d", d.Filled+d.Partial),
			fmt.Sprintf("%d", d.Failed),
			fmt.Sprintf("$%.2f", d.StakeTotal),
			fmt.Sprintf("$%.2f", d.FilledTotal),
		)
	}
	table.Render()
}
