package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/analysis"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
)

// Deps are the external collaborators a run consumes. Ledger and
// Notifier are optional.
type Deps struct {
	Data     ports.DataProxy
	Calendar ports.Calendar
	Ledger   ports.LedgerStorage
	Notifier ports.Notifier
	Mods     []Mod
}

// Run executes a full simulation: mods start up, the driver walks the
// calendar, and the daily series, ledger and risk metrics come back as
// the result.
func Run(goCtx context.Context, cfg *config.Config, strategy Strategy, deps Deps) (*domain.RunResult, error) {
	if strategy == nil {
		return nil, fmt.Errorf("engine.Run: nil strategy")
	}
	if deps.Data == nil || deps.Calendar == nil {
		return nil, fmt.Errorf("engine.Run: data proxy and calendar are required")
	}
	start, err := cfg.StartDate()
	if err != nil {
		return nil, err
	}
	end, err := cfg.EndDate()
	if err != nil {
		return nil, err
	}

	ctx := NewContext(cfg, deps.Data, deps.Calendar)
	broker := NewBroker(ctx)
	trader := &Trader{ctx: ctx, broker: broker}

	recorder := newRecorder(deps.Ledger)
	recorder.register(ctx.Bus)

	registerStrategy(ctx.Bus, strategy, trader)
	if err := strategy.Init(trader); err != nil {
		return nil, fmt.Errorf("engine.Run: strategy init: %w", err)
	}

	if err := startMods(deps.Mods, trader, cfg); err != nil {
		return nil, fmt.Errorf("engine.Run: mod start up: %w", err)
	}
	defer tearDownMods(deps.Mods)

	driver := NewDriver(ctx, broker)
	if err := driver.Run(goCtx, start, end); err != nil {
		return nil, err
	}

	result, err := buildResult(goCtx, broker, recorder, start, end)
	if err != nil {
		return nil, err
	}

	if deps.Notifier != nil {
		if err := deps.Notifier.Report(goCtx, result); err != nil {
			slog.Warn("report failed", "err", err)
		}
	}
	return result, nil
}

func buildResult(goCtx context.Context, broker *Broker, rec *recorder, start, end time.Time) (*domain.RunResult, error) {
	dailies := make(map[string][]domain.DailyValuation)
	for typ, account := range broker.Accounts() {
		dailies[typ] = account.Dailies()
		if rec.ledger != nil {
			for _, d := range account.Dailies() {
				if err := rec.ledger.SaveDailyValuation(goCtx, typ, d); err != nil {
					return nil, fmt.Errorf("engine: persist daily valuation: %w", err)
				}
			}
		}
	}

	orders, err := rec.flushOrders(goCtx)
	if err != nil {
		return nil, err
	}

	combined := combineDailies(dailies)
	return &domain.RunResult{
		StartDate: start,
		EndDate:   end,
		Dailies:   dailies,
		Orders:    orders,
		Trades:    rec.trades,
		Metrics:   analysis.Compute(combined, analysis.DefaultRiskFreeRate),
	}, nil
}

// combineDailies sums the trading accounts' series by date. The
// benchmark is excluded: it measures the market, not the strategy.
func combineDailies(dailies map[string][]domain.DailyValuation) []domain.DailyValuation {
	byDate := make(map[time.Time]domain.DailyValuation)
	for typ, series := range dailies {
		if typ == config.AccountBenchmark {
			continue
		}
		for _, d := range series {
			agg := byDate[d.Date]
			agg.Date = d.Date
			agg.Cash += d.Cash
			agg.FrozenCash += d.FrozenCash
			agg.MarketValue += d.MarketValue
			agg.DividendReceivable += d.DividendReceivable
			agg.PortfolioValue += d.PortfolioValue
			agg.TotalCommission += d.TotalCommission
			agg.TotalTax += d.TotalTax
			byDate[d.Date] = agg
		}
	}
	combined := make([]domain.DailyValuation, 0, len(byDate))
	for _, d := range byDate {
		combined = append(combined, d)
	}
	sort.Slice(combined, func(i, j int) bool { return combined[i].Date.Before(combined[j].Date) })
	return combined
}

// recorder keeps the run's order and trade ledger, persisting trades as
// they happen and orders at the end of the run.
type recorder struct {
	ledger ports.LedgerStorage
	orders []*domain.Order
	trades []domain.TradeRecord
}

func newRecorder(ledger ports.LedgerStorage) *recorder {
	return &recorder{ledger: ledger}
}

// register subscribes after the broker and accounts so recorded state
// is already reconciled.
func (r *recorder) register(bus *EventBus) {
	bus.AddListener(EventOrderPendingNew, func(e Event) error {
		r.orders = append(r.orders, e.Order)
		return nil
	})
	bus.AddListener(EventTrade, func(e Event) error {
		record := domain.RecordOf(e.Trade)
		r.trades = append(r.trades, record)
		if r.ledger != nil {
			if err := r.ledger.SaveTrade(context.Background(), record); err != nil {
				return fmt.Errorf("engine: persist trade %s: %w", record.ExecID, err)
			}
		}
		return nil
	})
}

func (r *recorder) flushOrders(goCtx context.Context) ([]domain.Order, error) {
	orders := make([]domain.Order, len(r.orders))
	for i, o := range r.orders {
		orders[i] = *o
		if r.ledger != nil {
			if err := r.ledger.SaveOrder(goCtx, *o); err != nil {
				return nil, fmt.Errorf("engine: persist order %s: %w", o.ID, err)
			}
		}
	}
	return orders, nil
}
