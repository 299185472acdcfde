package engine

import (
	"time"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/adapters/marketdata"
	"github.com/alejandrodnm/backsim/internal/domain"
)

var (
	day1 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	day3 = time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
)

var testStock = domain.Instrument{
	ID:         "000001.XSHE",
	Type:       domain.InstrumentStock,
	Symbol:     "PAYH",
	ListedDate: time.Date(1991, 4, 3, 0, 0, 0, 0, time.UTC),
	RoundLot:   100,
	Exchange:   "XSHE",
}

var testFuture = domain.Instrument{
	ID:                 "IF2406",
	Type:               domain.InstrumentFuture,
	Symbol:             "IF2406",
	ListedDate:         time.Date(2023, 6, 19, 0, 0, 0, 0, time.UTC),
	RoundLot:           1,
	Exchange:           "CCFX",
	ContractMultiplier: 10,
	MarginRate:         0.1,
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Base.StartDate = "2024-03-04"
	cfg.Base.EndDate = "2024-03-06"
	cfg.Storage.DSN = ":memory:"
	return cfg
}

// testEnv wires a context, a broker and a memory feed seeded with the
// test instruments.
type testEnv struct {
	ctx    *Context
	broker *Broker
	feed   *marketdata.Memory
}

func newTestEnv(cfg *config.Config) *testEnv {
	feed := marketdata.NewMemory()
	feed.AddInstrument(testStock)
	feed.AddInstrument(testFuture)
	ctx := NewContext(cfg, feed, feed)
	return &testEnv{ctx: ctx, broker: NewBroker(ctx), feed: feed}
}

func (env *testEnv) stockAccount() *StockAccount {
	return env.broker.Accounts()[config.AccountStock].(*StockAccount)
}

func (env *testEnv) futureAccount() *FutureAccount {
	return env.broker.Accounts()[config.AccountFuture].(*FutureAccount)
}

// openDay publishes BEFORE_TRADING for the given trading day.
func (env *testEnv) openDay(day time.Time) error {
	env.ctx.setTradingDay(day)
	return env.ctx.Bus.Publish(Event{Type: EventBeforeTrading})
}

// publishBar installs the snapshot on the context and fires BAR, the way
// the driver does between open and close.
func (env *testEnv) publishBar(dt time.Time, bars domain.BarDict) error {
	env.ctx.setBarTime(dt, bars)
	return env.ctx.Bus.Publish(Event{Type: EventBar, Bars: bars})
}

// closeDay publishes AFTER_TRADING and SETTLEMENT.
func (env *testEnv) closeDay() error {
	if err := env.ctx.Bus.Publish(Event{Type: EventAfterTrading}); err != nil {
		return err
	}
	return env.ctx.Bus.Publish(Event{Type: EventSettlement})
}

// stockBar builds an OK bar for the test stock at the given close.
func stockBar(dt time.Time, close, volume float64) domain.Bar {
	return domain.Bar{
		Instrument: testStock,
		Datetime:   dt,
		Open:       close,
		High:       close,
		Low:        close,
		Close:      close,
		Volume:     volume,
		LimitUp:    close * 1.1,
		LimitDown:  close * 0.9,
		Status:     domain.BarOK,
	}
}

func futureBar(dt time.Time, close, volume float64) domain.Bar {
	return domain.Bar{
		Instrument: testFuture,
		Datetime:   dt,
		Open:       close,
		High:       close,
		Low:        close,
		Close:      close,
		Volume:     volume,
		LimitUp:    close * 1.1,
		LimitDown:  close * 0.9,
		Status:     domain.BarOK,
	}
}
