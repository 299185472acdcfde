// Package notify renders a run's result for humans.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out     io.Writer
	verbose bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// Report imprime el resumen de la simulación: métricas de riesgo, la
// serie diaria por cuenta y, en modo verbose, el registro de trades.
func (c *Console) Report(_ context.Context, result *domain.RunResult) error {
	fmt.Fprintf(c.out, "\n========================================================\n")
	fmt.Fprintf(c.out, "  BACKTEST %s to %s (%d trading days)\n",
		result.StartDate.Format("2006-01-02"),
		result.EndDate.Format("2006-01-02"),
		result.Metrics.TradingDays)
	fmt.Fprintf(c.out, "========================================================\n\n")

	c.printMetrics(result.Metrics)
	c.printAccounts(result)

	if c.verbose {
		c.printTrades(result.Trades)
		c.printOrders(result.Orders)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *Console) printMetrics(m domain.RiskMetrics) {
	table := tablewriter.NewTable(c.out, tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header("Total Return", "Annualized", "Volatility", "Sharpe", "Max Drawdown")
	table.Append(
		fmt.Sprintf("%.2f%%", m.TotalReturn*100),
		fmt.Sprintf("%.2f%%", m.AnnualizedReturn*100),
		fmt.Sprintf("%.2f%%", m.Volatility*100),
		fmt.Sprintf("%.3f", m.Sharpe),
		fmt.Sprintf("-%.2f%%", m.MaxDrawdown*100),
	)
	table.Render()
}

// printAccounts imprime la última valoración de cada cuenta, con la
// benchmark al final como referencia.
func (c *Console) printAccounts(result *domain.RunResult) {
	types := make([]string, 0, len(result.Dailies))
	for typ := range result.Dailies {
		if typ != config.AccountBenchmark {
			types = append(types, typ)
		}
	}
	sort.Strings(types)
	if _, ok := result.Dailies[config.AccountBenchmark]; ok {
		types = append(types, config.AccountBenchmark)
	}

	fmt.Fprintf(c.out, "\n  --- ACCOUNTS (final day) ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Account", "Cash", "Market Value", "Portfolio", "Commission", "Tax")
	for _, typ := range types {
		series := result.Dailies[typ]
		if len(series) == 0 {
			continue
		}
		last := series[len(series)-1]
		table.Append(
			typ,
			fmt.Sprintf("%.2f", last.Cash),
			fmt.Sprintf("%.2f", last.MarketValue),
			fmt.Sprintf("%.2f", last.PortfolioValue),
			fmt.Sprintf("%.2f", last.TotalCommission),
			fmt.Sprintf("%.2f", last.TotalTax),
		)
	}
	table.Render()
}

func (c *Console) printTrades(trades []domain.TradeRecord) {
	fmt.Fprintf(c.out, "\n  --- TRADES (%d) ---\n", len(trades))
	if len(trades) == 0 {
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Instrument", "Side", "Price", "Amount", "Commission", "Tax")
	for _, t := range trades {
		table.Append(
			t.TradingDT.Format("2006-01-02"),
			t.InstrumentID,
			string(t.Side),
			fmt.Sprintf("%.3f", t.Price),
			fmt.Sprintf("%d", t.Amount),
			fmt.Sprintf("%.2f", t.Commission),
			fmt.Sprintf("%.2f", t.Tax),
		)
	}
	table.Render()
}

func (c *Console) printOrders(orders []domain.Order) {
	final := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == domain.OrderRejected || o.Status == domain.OrderCancelled {
			final = append(final, o)
		}
	}
	if len(final) == 0 {
		return
	}

	fmt.Fprintf(c.out, "\n  --- REJECTED / CANCELLED ORDERS (%d) ---\n", len(final))
	for _, o := range final {
		fmt.Fprintf(c.out, "  [%s] %s %s x%d %s: %s\n",
			o.CreationTime.Format("2006-01-02"), string(o.Side),
			o.InstrumentID, o.Quantity, string(o.Status), o.RejectionReason)
	}
}
