package engine

import (
	"testing"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockAccount_RejectsBuyWithoutCash(t *testing.T) {
	env := newTestEnv(testConfig())
	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		testStock.ID: stockBar(day1, 10, 100000),
	}))

	order := domain.NewMarketOrder(testStock.ID, domain.SideBuy, 100000, 10, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(order))

	assert.Equal(t, domain.OrderRejected, order.Status)
	assert.Contains(t, order.RejectionReason, "not enough money")

	pf := env.stockAccount().Portfolio()
	assert.InDelta(t, 100000.0, pf.Cash, 0.001)
	assert.InDelta(t, 0.0, pf.FrozenCash, 0.001)
	assert.Empty(t, env.broker.OpenOrders())
}

func TestStockAccount_T1BlocksSameDaySell(t *testing.T) {
	env := newTestEnv(testConfig())
	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		testStock.ID: stockBar(day1, 10, 100000),
	}))

	buy := domain.NewMarketOrder(testStock.ID, domain.SideBuy, 100, 10, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(buy))
	require.Equal(t, domain.OrderFilled, buy.Status)

	sell := domain.NewMarketOrder(testStock.ID, domain.SideSell, 100, 10, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(sell))
	assert.Equal(t, domain.OrderRejected, sell.Status)
	assert.Contains(t, sell.RejectionReason, "not enough stock")

	// The lock resets after the close; tomorrow the shares are sellable.
	require.NoError(t, env.closeDay())
	require.NoError(t, env.openDay(day2))
	require.NoError(t, env.publishBar(day2, domain.BarDict{
		testStock.ID: stockBar(day2, 10, 100000),
	}))

	sell = domain.NewMarketOrder(testStock.ID, domain.SideSell, 100, 10, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(sell))
	assert.Equal(t, domain.OrderFilled, sell.Status)

	pf := env.stockAccount().Portfolio()
	pos := pf.Positions[testStock.ID]
	require.NotNil(t, pos)
	assert.Equal(t, int64(0), pos.Quantity())
	// 100000 - 1000 - 5 (buy) + 1000 - 5 - 1 stamp tax (sell)
	assert.InDelta(t, 99989.0, pf.Cash, 0.001)
	assert.InDelta(t, 1.0, pf.TotalTax, 0.001)
}

func TestStockAccount_T1ExemptInstrumentSellsSameDay(t *testing.T) {
	etf := domain.Instrument{
		ID: "510900.XSHG", Type: domain.InstrumentStock, RoundLot: 100, Exchange: "XSHG",
	}
	env := newTestEnv(testConfig())
	env.feed.AddInstrument(etf)

	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		etf.ID: {
			Instrument: etf, Datetime: day1,
			Open: 1, Close: 1, High: 1, Low: 1,
			Volume: 1e7, LimitUp: 1.1, LimitDown: 0.9, Status: domain.BarOK,
		},
	}))

	buy := domain.NewMarketOrder(etf.ID, domain.SideBuy, 100, 1, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(buy))
	require.Equal(t, domain.OrderFilled, buy.Status)

	sell := domain.NewMarketOrder(etf.ID, domain.SideSell, 100, 1, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(sell))
	assert.Equal(t, domain.OrderFilled, sell.Status)
}

func TestStockAccount_DividendTwoPhase(t *testing.T) {
	env := newTestEnv(testConfig())
	account := env.stockAccount()
	pos := account.Portfolio().Position(testStock)
	pos.BuyTradeQuantity = 400

	env.feed.AddDividend(domain.Dividend{
		InstrumentID:    testStock.ID,
		BookClosureDate: day1,
		ExDividendDate:  day2,
		PayableDate:     day3,
		CashBeforeTax:   3.5, // per round lot of 10
		RoundLot:        10,
	})

	// Settlement of the record date books the receivable.
	env.ctx.setTradingDay(day1)
	require.NoError(t, env.ctx.Bus.Publish(Event{Type: EventSettlement}))
	pf := account.Portfolio()
	assert.InDelta(t, 140.0, pf.DividendReceivable, 0.001) // 0.35 * 400
	assert.InDelta(t, 100000.0, pf.Cash, 0.001)
	require.Contains(t, pf.DividendInfo, testStock.ID)
	assert.Equal(t, int64(400), pf.DividendInfo[testStock.ID].Quantity)

	// Before-trading of the payable date converts it into cash.
	require.NoError(t, env.openDay(day3))
	assert.InDelta(t, 100140.0, pf.Cash, 0.001)
	assert.InDelta(t, 0.0, pf.DividendReceivable, 0.001)
	assert.NotContains(t, pf.DividendInfo, testStock.ID)
}

func TestStockAccount_DelistingSweep(t *testing.T) {
	delisted := domain.Instrument{
		ID: "600001.XSHG", Type: domain.InstrumentStock, RoundLot: 100,
		Exchange: "XSHG", DeListedDate: day2,
	}
	cfg := testConfig()
	cfg.Validator.CashReturnByStockDelisted = true
	env := newTestEnv(cfg)
	env.feed.AddInstrument(delisted)

	account := env.stockAccount()
	pos := account.Portfolio().Position(delisted)
	pos.BuyTradeQuantity = 100
	pos.MarketValue = 1000

	env.ctx.setTradingDay(day2)
	require.NoError(t, env.ctx.Bus.Publish(Event{Type: EventAfterTrading}))

	pf := account.Portfolio()
	assert.NotContains(t, pf.Positions, delisted.ID)
	assert.InDelta(t, 101000.0, pf.Cash, 0.001)
}

func TestStockAccount_DelistingWithoutCashReturnDropsValue(t *testing.T) {
	delisted := domain.Instrument{
		ID: "600001.XSHG", Type: domain.InstrumentStock, RoundLot: 100,
		Exchange: "XSHG", DeListedDate: day2,
	}
	env := newTestEnv(testConfig())
	env.feed.AddInstrument(delisted)

	account := env.stockAccount()
	pos := account.Portfolio().Position(delisted)
	pos.BuyTradeQuantity = 100
	pos.MarketValue = 1000

	env.ctx.setTradingDay(day2)
	require.NoError(t, env.ctx.Bus.Publish(Event{Type: EventAfterTrading}))

	pf := account.Portfolio()
	assert.NotContains(t, pf.Positions, delisted.ID)
	assert.InDelta(t, 100000.0, pf.Cash, 0.001)
}

func TestStockAccount_SplitScalesQuantities(t *testing.T) {
	cfg := testConfig()
	cfg.Base.HandleSplit = true
	env := newTestEnv(cfg)

	account := env.stockAccount()
	pos := account.Portfolio().Position(testStock)
	pos.BuyTradeQuantity = 100
	env.feed.AddSplit(testStock.ID, day2, 1, 2) // 1 share becomes 2

	require.NoError(t, env.openDay(day2))
	assert.Equal(t, int64(200), pos.Quantity())
}

func TestStockAccount_StateRoundTrip(t *testing.T) {
	env := newTestEnv(testConfig())
	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		testStock.ID: stockBar(day1, 10, 100000),
	}))

	order := domain.NewMarketOrder(testStock.ID, domain.SideBuy, 100, 10, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(order))
	require.NoError(t, env.closeDay())

	account := env.stockAccount()
	state, err := account.GetState()
	require.NoError(t, err)

	restored := NewStockAccount(env.ctx, 0, time.Time{})
	require.NoError(t, restored.SetState(state))

	assert.InDelta(t, account.Portfolio().Cash, restored.Portfolio().Cash, 0.001)
	assert.Equal(t, account.Portfolio().Positions[testStock.ID].Quantity(),
		restored.Portfolio().Positions[testStock.ID].Quantity())
	assert.Len(t, restored.DailyOrders(), 1)
	assert.Len(t, restored.Dailies(), 1)

	again, err := restored.GetState()
	require.NoError(t, err)
	assert.Equal(t, state, again)
}

func TestStockAccount_StateRoundTripManyPositions(t *testing.T) {
	env := newTestEnv(testConfig())
	account := env.stockAccount()
	pf := account.Portfolio()

	// Map-backed holdings must serialize in a stable order.
	ids := []string{"600000.XSHG", "000001.XSHE", "300750.XSHE", "601318.XSHG", "002594.XSHE"}
	for i, id := range ids {
		ins := domain.Instrument{ID: id, Type: domain.InstrumentStock, RoundLot: 100, Exchange: "XSHG"}
		env.feed.AddInstrument(ins)
		pos := pf.Position(ins)
		pos.BuyTradeQuantity = int64(100 * (i + 1))
		pos.LastPrice = float64(10 + i)
		pos.MarketValue = float64(pos.BuyTradeQuantity) * pos.LastPrice
	}
	pf.DividendInfo["600000.XSHG"] = domain.Dividend{
		InstrumentID: "600000.XSHG", CashBeforeTax: 2, RoundLot: 10, Quantity: 100, PayableDate: day3,
	}
	pf.DividendInfo["000001.XSHE"] = domain.Dividend{
		InstrumentID: "000001.XSHE", CashBeforeTax: 1.5, RoundLot: 10, Quantity: 200, PayableDate: day3,
	}

	state, err := account.GetState()
	require.NoError(t, err)

	// Two captures of the same account are already byte identical.
	repeat, err := account.GetState()
	require.NoError(t, err)
	require.Equal(t, state, repeat)

	restored := NewStockAccount(env.ctx, 0, time.Time{})
	require.NoError(t, restored.SetState(state))
	require.Len(t, restored.Portfolio().Positions, 5)
	assert.Equal(t, int64(200), restored.Portfolio().Positions["000001.XSHE"].Quantity())
	require.Len(t, restored.Portfolio().DividendInfo, 2)

	again, err := restored.GetState()
	require.NoError(t, err)
	assert.Equal(t, state, again)
}

func TestStockAccount_OrderCounterReleasedOnReversal(t *testing.T) {
	env := newTestEnv(testConfig())
	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		testStock.ID: stockBar(day1, 10, 100000),
	}))

	swept := domain.NewLimitOrder(testStock.ID, domain.SideBuy, 100, 9.2, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(swept))
	pos := env.stockAccount().Portfolio().Position(testStock)
	require.Equal(t, 1, pos.TotalOrders)

	// The sweep reversal gives the never-filled order's slot back.
	require.NoError(t, env.closeDay())
	assert.Equal(t, 0, pos.TotalOrders)

	require.NoError(t, env.openDay(day2))
	require.NoError(t, env.publishBar(day2, domain.BarDict{
		testStock.ID: stockBar(day2, 10, 100000),
	}))
	filled := domain.NewMarketOrder(testStock.ID, domain.SideBuy, 100, 10, env.ctx.CalendarDT())
	require.NoError(t, env.broker.SubmitOrder(filled))
	require.Equal(t, domain.OrderFilled, filled.Status)
	pos = env.stockAccount().Portfolio().Position(testStock)
	assert.Equal(t, 1, pos.TotalOrders)
}
