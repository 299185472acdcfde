package engine

import "time"

// benchmarkCommissionRate is charged once when the benchmark position is
// seeded.
const benchmarkCommissionRate = 0.0008

// BenchmarkAccount is a passive buy-and-hold account on a single
// benchmark instrument: it invests all cash on the first bar with a
// usable price and only revalues afterwards.
type BenchmarkAccount struct {
	baseAccount
	benchmark string
}

// NewBenchmarkAccount creates the benchmark account. Its cash is the sum
// of the trading accounts' starting cash.
func NewBenchmarkAccount(ctx *Context, startingCash float64, startDate time.Time) *BenchmarkAccount {
	return &BenchmarkAccount{
		baseAccount: newBaseAccount(ctx, "BENCHMARK", startingCash, startDate,
			FixedSlippage{}, RateCommission{Rate: benchmarkCommissionRate}, NoTax{}),
		benchmark: ctx.Config.Base.Benchmark,
	}
}

func (a *BenchmarkAccount) Register(bus *EventBus) {
	bus.AddListener(EventBeforeTrading, a.onBeforeTrading)
	bus.AddListener(EventBar, a.onBar)
	bus.AddListener(EventAfterTrading, a.onAfterTrading)
}

func (a *BenchmarkAccount) onBeforeTrading(Event) error {
	a.portfolio.YesterdayPortfolioValue = a.portfolio.PortfolioValue()
	a.handleDividendPayable(a.ctx.TradingDT())
	return nil
}

// onBar seeds the position on the first usable bar, then only revalues.
func (a *BenchmarkAccount) onBar(e Event) error {
	bar, ok := e.Bars[a.benchmark]
	if !ok || bar.IsNaN {
		return nil
	}
	price := bar.Close
	pf := a.portfolio
	pos := pf.Position(a.instrument(a.benchmark))

	if pf.MarketValue() == 0 {
		quantity := int64(pf.Cash / price)
		deltaValue := float64(quantity) * price
		commission := benchmarkCommissionRate * deltaValue
		pos.TotalCommission = commission
		pos.BuyTradeQuantity = quantity
		pos.BuyTradeValue = deltaValue
		pos.MarketValue = deltaValue
		pos.LastPrice = price
		pf.Cash -= deltaValue + commission
		pf.TotalCommission += commission
	} else {
		pos.MarketValue = float64(pos.BuyTradeQuantity) * price
		pos.LastPrice = price
	}
	return nil
}

// onAfterTrading persists today's valuation and records dividends going
// ex today. The benchmark persists here rather than at settlement.
func (a *BenchmarkAccount) onAfterTrading(Event) error {
	date := a.ctx.TradingDT()
	a.portfolioPersist(date)
	a.handleDividendExDividend(date)
	return nil
}

var (
	_ Account = (*StockAccount)(nil)
	_ Account = (*FutureAccount)(nil)
	_ Account = (*BenchmarkAccount)(nil)
)
