package engine

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// FutureAccount applies futures policy: margin debited from cash on
// entry, close-today offsets, and daily mark-to-market settlement that
// realizes the day's PnL into cash and rebases open prices at the
// settlement price.
type FutureAccount struct {
	baseAccount
}

// NewFutureAccount creates a future account. Futures pay commission but
// no stamp tax.
func NewFutureAccount(ctx *Context, startingCash float64, startDate time.Time) *FutureAccount {
	return &FutureAccount{
		baseAccount: newBaseAccount(ctx, "FUTURE", startingCash, startDate,
			FixedSlippage{}, RateCommission{Rate: defaultCommissionRate}, NoTax{}),
	}
}

func (a *FutureAccount) Register(bus *EventBus) {
	bus.AddListener(EventBeforeTrading, a.onBeforeTrading)
	bus.AddListener(EventBar, a.onBar)
	bus.AddListener(EventSettlement, a.onSettlement)
	bus.AddListener(EventOrderPendingNew, a.onOrderPendingNew)
	bus.AddListener(EventOrderCreationReject, a.onOrderReversal)
	bus.AddListener(EventOrderCancellationPass, a.onOrderReversal)
	bus.AddListener(EventOrderUnsolicitedUpdate, a.onOrderReversal)
	bus.AddListener(EventTrade, a.onTrade)
}

func (a *FutureAccount) onBeforeTrading(Event) error {
	for id, pos := range a.portfolio.Positions {
		if pos.LongQuantity == 0 && pos.ShortQuantity == 0 {
			delete(a.portfolio.Positions, id)
		}
	}
	return nil
}

func (a *FutureAccount) onBar(e Event) error {
	for id, pos := range a.portfolio.Positions {
		bar, ok := e.Bars[id]
		if !ok || bar.IsNaN {
			continue
		}
		pos.LastPrice = bar.Close
		pos.MarketValue = pos.FloatingPnL()
	}
	return nil
}

// onSettlement realizes the day's mark-to-market PnL into cash, rebases
// the open prices at the settlement price (the day's close) and resets
// the close-today buckets.
func (a *FutureAccount) onSettlement(Event) error {
	pf := a.portfolio
	for _, pos := range pf.Positions {
		settle := pos.LastPrice
		if settle <= 0 {
			continue
		}
		pf.Cash += pos.FloatingPnL()
		pos.LongAvgOpenPrice = settle
		pos.ShortAvgOpenPrice = settle
		pos.PrevSettlePrice = settle
		pos.LongTodayQuantity = 0
		pos.ShortTodayQuantity = 0
		pos.MarketValue = 0
	}
	a.portfolioPersist(a.ctx.TradingDT())
	pf.YesterdayPortfolioValue = pf.PortfolioValue()
	return nil
}

// onOrderPendingNew validates margin and freezes it against the order.
func (a *FutureAccount) onOrderPendingNew(e Event) error {
	if e.Account != Account(a) || e.Order.IsFinal() {
		return nil
	}
	order := e.Order
	ins := a.instrument(order.InstrumentID)
	margin := a.orderMargin(order, ins, float64(order.Quantity))
	if margin > a.portfolio.Cash {
		order.MarkRejected(fmt.Sprintf(
			"Order Rejected: not enough margin to open %s, needs %.2f, cash %.2f",
			order.InstrumentID, margin, a.portfolio.Cash))
		return nil
	}
	pos := a.portfolio.Position(ins)
	pos.TotalOrders++
	a.portfolio.FrozenCash += margin
	a.portfolio.Cash -= margin
	return nil
}

func (a *FutureAccount) onOrderReversal(e Event) error {
	if e.Account != Account(a) {
		return nil
	}
	order := e.Order
	ins := a.instrument(order.InstrumentID)
	margin := a.orderMargin(order, ins, float64(order.UnfilledQuantity()))
	if order.FilledQuantity == 0 {
		a.portfolio.Position(ins).TotalOrders--
	}
	a.portfolio.FrozenCash -= margin
	a.portfolio.Cash += margin
	return nil
}

func (a *FutureAccount) onTrade(e Event) error {
	if e.Account != Account(a) {
		return nil
	}
	pf := a.portfolio
	trade := e.Trade
	order := trade.Order
	ins := a.instrument(order.InstrumentID)
	pos := pf.Position(ins)
	pos.IsTraded = true
	mult := ins.Multiplier()
	rate := ins.MarginRate

	// Release the frozen margin for the filled part; the open leg below
	// re-debits margin at the actual fill price.
	frozen := a.orderMargin(order, ins, float64(trade.Amount))
	pf.FrozenCash -= frozen
	pf.Cash += frozen

	amount := trade.Amount
	if order.Side == domain.SideBuy {
		closeQty := min64(amount, pos.ShortQuantity)
		if closeQty > 0 {
			pnl := (pos.ShortAvgOpenPrice - trade.Price) * float64(closeQty) * mult
			released := pos.ShortMargin * float64(closeQty) / float64(pos.ShortQuantity)
			pos.ShortMargin -= released
			pos.ShortQuantity -= closeQty
			pos.ShortTodayQuantity -= min64(trade.CloseTodayAmount, closeQty)
			pf.Cash += pnl + released
		}
		if openQty := amount - closeQty; openQty > 0 {
			margin := trade.Price * float64(openQty) * mult * rate
			pos.LongAvgOpenPrice = (pos.LongAvgOpenPrice*float64(pos.LongQuantity) +
				trade.Price*float64(openQty)) / float64(pos.LongQuantity+openQty)
			pos.LongQuantity += openQty
			pos.LongTodayQuantity += openQty
			pos.LongMargin += margin
			pf.Cash -= margin
		}
		pos.BuyTradeQuantity += amount
		pos.BuyTradeValue += trade.Price * float64(amount)
	} else {
		closeQty := min64(amount, pos.LongQuantity)
		if closeQty > 0 {
			pnl := (trade.Price - pos.LongAvgOpenPrice) * float64(closeQty) * mult
			released := pos.LongMargin * float64(closeQty) / float64(pos.LongQuantity)
			pos.LongMargin -= released
			pos.LongQuantity -= closeQty
			pos.LongTodayQuantity -= min64(trade.CloseTodayAmount, closeQty)
			pf.Cash += pnl + released
		}
		if openQty := amount - closeQty; openQty > 0 {
			margin := trade.Price * float64(openQty) * mult * rate
			pos.ShortAvgOpenPrice = (pos.ShortAvgOpenPrice*float64(pos.ShortQuantity) +
				trade.Price*float64(openQty)) / float64(pos.ShortQuantity+openQty)
			pos.ShortQuantity += openQty
			pos.ShortTodayQuantity += openQty
			pos.ShortMargin += margin
			pf.Cash -= margin
		}
		pos.SellTradeQuantity += amount
		pos.SellTradeValue += trade.Price * float64(amount)
	}

	pos.TransactionCost += trade.Commission + trade.Tax
	pos.TotalCommission += trade.Commission
	pos.TotalTrades++
	pos.LastPrice = trade.Price
	pos.MarketValue = pos.FloatingPnL()

	pf.TotalCommission += trade.Commission
	pf.Cash -= trade.Commission
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// orderMargin is the cash reserved against an order of the given quantity.
func (a *FutureAccount) orderMargin(order *domain.Order, ins domain.Instrument, quantity float64) float64 {
	rate := ins.MarginRate
	if rate <= 0 {
		rate = 1
	}
	return order.FrozenPrice * quantity * ins.Multiplier() * rate
}
