package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// StockAccount applies equity policy: cash freezing against buy orders,
// T+1 sell discipline, dividends, splits and delisting sweeps.
type StockAccount struct {
	baseAccount
}

// NewStockAccount creates a stock account with the default A-share deciders.
func NewStockAccount(ctx *Context, startingCash float64, startDate time.Time) *StockAccount {
	slippage, commission, tax := defaultStockDeciders()
	return &StockAccount{
		baseAccount: newBaseAccount(ctx, "STOCK", startingCash, startDate, slippage, commission, tax),
	}
}

func (a *StockAccount) Register(bus *EventBus) {
	bus.AddListener(EventBeforeTrading, a.onBeforeTrading)
	bus.AddListener(EventBar, a.onBar)
	bus.AddListener(EventAfterTrading, a.onAfterTrading)
	bus.AddListener(EventSettlement, a.onSettlement)
	bus.AddListener(EventOrderPendingNew, a.onOrderPendingNew)
	bus.AddListener(EventOrderCreationReject, a.onOrderReversal)
	bus.AddListener(EventOrderCancellationPass, a.onOrderReversal)
	bus.AddListener(EventOrderUnsolicitedUpdate, a.onOrderReversal)
	bus.AddListener(EventTrade, a.onTrade)
}

// onBeforeTrading prunes empty positions, pays dividends due today and
// applies splits when enabled.
func (a *StockAccount) onBeforeTrading(Event) error {
	positions := a.portfolio.Positions
	for id, pos := range positions {
		if pos.Quantity() == 0 {
			delete(positions, id)
		}
	}
	date := a.ctx.TradingDT()
	a.handleDividendPayable(date)
	if a.ctx.Config.Base.HandleSplit {
		a.handleSplit(date)
	}
	return nil
}

// onBar revalues every position at the bar close.
func (a *StockAccount) onBar(e Event) error {
	for id, pos := range a.portfolio.Positions {
		bar, ok := e.Bars[id]
		if !ok || bar.IsNaN {
			continue
		}
		pos.MarketValue = float64(pos.Quantity()) * bar.Close
		pos.LastPrice = bar.Close
	}
	return nil
}

// onAfterTrading resets the T+1 lock and sweeps delisted instruments.
func (a *StockAccount) onAfterTrading(Event) error {
	date := a.ctx.TradingDT()
	pf := a.portfolio

	var delisted []string
	for id, pos := range pf.Positions {
		pos.BuyTodayHoldingQuantity = 0
		if pos.Instrument.DelistedOnOrBefore(date) {
			delisted = append(delisted, id)
		}
	}

	for _, id := range delisted {
		pos := pf.Positions[id]
		if a.ctx.Config.Validator.CashReturnByStockDelisted {
			pf.Cash += pos.MarketValue
		}
		if pos.Quantity() != 0 {
			slog.Warn("instrument expired, closing all positions by system",
				"instrument", id, "quantity", pos.Quantity())
		}
		delete(pf.Positions, id)
	}
	return nil
}

// onSettlement persists today's valuation, rolls the yesterday value and
// records dividends going ex today.
func (a *StockAccount) onSettlement(Event) error {
	date := a.ctx.TradingDT()
	a.portfolioPersist(date)
	a.portfolio.YesterdayPortfolioValue = a.portfolio.PortfolioValue()
	a.handleDividendExDividend(date)
	return nil
}

// onOrderPendingNew validates the placement and reserves cash (buys) or
// order-quantity accounting (sells).
func (a *StockAccount) onOrderPendingNew(e Event) error {
	if e.Account != Account(a) || e.Order.IsFinal() {
		return nil
	}
	order := e.Order
	pos := a.portfolio.Position(a.instrument(order.InstrumentID))

	if reason, ok := a.validateOrder(order, pos); !ok {
		order.MarkRejected(reason)
		return nil
	}

	pos.TotalOrders++
	value := order.FrozenPrice * float64(order.Quantity)
	a.updateOrderData(order, order.Quantity, value)
	a.updateFrozenCash(order, value)
	return nil
}

// validateOrder is the pre-trade check: cash for buys, sellable quantity
// (net of today's buys, T+1) for sells.
func (a *StockAccount) validateOrder(order *domain.Order, pos *domain.Position) (string, bool) {
	if order.Side == domain.SideBuy {
		cost := order.FrozenPrice * float64(order.Quantity)
		if cost > a.portfolio.Cash {
			return fmt.Sprintf(
				"Order Rejected: not enough money to buy %s, needs %.2f, cash %.2f",
				order.InstrumentID, cost, a.portfolio.Cash), false
		}
		return "", true
	}
	sellable := pos.SellableQuantity()
	if order.Quantity > sellable {
		return fmt.Sprintf(
			"Order Rejected: not enough stock %s to sell, sellable %d, order %d",
			order.InstrumentID, sellable, order.Quantity), false
	}
	return "", true
}

// onOrderReversal releases the reservation held for the unfilled part of
// an order leaving the book (reject, cancel, unsolicited update). An
// order that never filled also gives its order-counter slot back.
func (a *StockAccount) onOrderReversal(e Event) error {
	if e.Account != Account(a) {
		return nil
	}
	order := e.Order
	unfilled := order.UnfilledQuantity()
	value := order.FrozenPrice * float64(unfilled)
	if order.FilledQuantity == 0 {
		a.portfolio.Position(a.instrument(order.InstrumentID)).TotalOrders--
	}
	a.updateOrderData(order, -unfilled, -value)
	a.updateFrozenCash(order, -value)
	return nil
}

// onTrade settles one fill into the position and the portfolio.
func (a *StockAccount) onTrade(e Event) error {
	if e.Account != Account(a) {
		return nil
	}
	pf := a.portfolio
	trade := e.Trade
	order := trade.Order
	pos := pf.Position(a.instrument(order.InstrumentID))
	pos.IsTraded = true

	qty := trade.Amount
	frozenValue := order.FrozenPrice * float64(qty)
	tradeValue := trade.Price * float64(qty)

	if order.Side == domain.SideBuy {
		pos.AvgPrice = (pos.AvgPrice*float64(pos.Quantity()) + tradeValue) /
			float64(pos.Quantity()+qty)
	}

	a.updateOrderData(order, -qty, -frozenValue)
	a.updateTradeData(pos, order, trade, tradeValue)
	a.updateFrozenCash(order, -frozenValue)

	// Revalue at the current bar close; fall back to the fill price when
	// the snapshot has no bar for the instrument.
	price := trade.Price
	if bar, ok := a.ctx.CurrentBars()[order.InstrumentID]; ok && !bar.IsNaN {
		price = bar.Close
	}
	if order.Side == domain.SideBuy && !a.ctx.Config.Validator.IsT1Exempt(order.InstrumentID) {
		pos.BuyTodayHoldingQuantity += qty
	}
	pos.MarketValue = float64(pos.BuyTradeQuantity-pos.SellTradeQuantity) * price
	pos.LastPrice = price
	pos.TotalTrades++

	pf.TotalTax += trade.Tax
	pf.TotalCommission += trade.Commission
	pf.Cash -= trade.Tax + trade.Commission
	if order.Side == domain.SideBuy {
		pf.Cash -= tradeValue
	} else {
		pf.Cash += tradeValue
	}
	return nil
}

func (a *StockAccount) updateOrderData(order *domain.Order, incQuantity int64, incValue float64) {
	pos := a.portfolio.Position(a.instrument(order.InstrumentID))
	if order.Side == domain.SideBuy {
		pos.BuyOrderQuantity += incQuantity
		pos.BuyOrderValue += incValue
	} else {
		pos.SellOrderQuantity += incQuantity
		pos.SellOrderValue += incValue
	}
}

func (a *StockAccount) updateTradeData(pos *domain.Position, order *domain.Order, trade domain.Trade, tradeValue float64) {
	pos.TransactionCost += trade.Commission + trade.Tax
	pos.TotalCommission += trade.Commission
	if order.Side == domain.SideBuy {
		pos.BuyTradeQuantity += trade.Amount
		pos.BuyTradeValue += tradeValue
	} else {
		pos.SellTradeQuantity += trade.Amount
		pos.SellTradeValue += tradeValue
	}
}

// updateFrozenCash moves cash into the frozen bucket for buys at order
// creation and back out as the order fills or dies.
func (a *StockAccount) updateFrozenCash(order *domain.Order, incValue float64) {
	if order.Side != domain.SideBuy {
		return
	}
	a.portfolio.FrozenCash += incValue
	a.portfolio.Cash -= incValue
}

// handleSplit scales the quantity counters by the split ratio.
func (a *StockAccount) handleSplit(date time.Time) {
	for id, pos := range a.portfolio.Positions {
		from, to, ok := a.ctx.Data.Split(id, date)
		if !ok {
			continue
		}
		if from <= 0 || to <= 0 {
			slog.Warn("invalid split data", "instrument", id, "from", from, "to", to)
			continue
		}
		ratio := to / from
		pos.BuyOrderQuantity = int64(float64(pos.BuyOrderQuantity) * ratio)
		pos.SellOrderQuantity = int64(float64(pos.SellOrderQuantity) * ratio)
		pos.BuyTradeQuantity = int64(float64(pos.BuyTradeQuantity) * ratio)
		pos.SellTradeQuantity = int64(float64(pos.SellTradeQuantity) * ratio)
		slog.Info("split applied", "instrument", id,
			"ratio", fmt.Sprintf("%.4f", ratio), "quantity", pos.Quantity())
	}
}
