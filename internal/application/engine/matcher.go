package engine

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// DealPriceDecider picks the reference price a bar trades at:
// bar.Close for CURRENT_BAR_CLOSE matching, bar.Open for NEXT_BAR_OPEN.
type DealPriceDecider func(domain.Bar) float64

// accountOrder pairs an open order with the account that owns it.
type accountOrder struct {
	account Account
	order   *domain.Order
}

// Matcher decides fills for open orders against a single bar snapshot
// under price and volume constraints. It keeps a per-update turnover
// accumulator recording how much of the bar's volume this strategy has
// already consumed.
type Matcher struct {
	ctx           *Context
	dealPrice     DealPriceDecider
	barLimit      bool
	volumePercent float64

	bars       domain.BarDict
	turnover   map[string]int64
	calendarDT time.Time
	tradingDT  time.Time
}

// NewMatcher creates a matcher with the given deal-price policy.
func NewMatcher(ctx *Context, dealPrice DealPriceDecider, barLimit bool, volumePercent float64) *Matcher {
	if volumePercent <= 0 {
		volumePercent = 0.25
	}
	return &Matcher{
		ctx:           ctx,
		dealPrice:     dealPrice,
		barLimit:      barLimit,
		volumePercent: volumePercent,
		turnover:      make(map[string]int64),
	}
}

// Update installs the bar snapshot for the next match pass and resets
// the turnover accumulator.
func (m *Matcher) Update(calendarDT, tradingDT time.Time, bars domain.BarDict) {
	m.bars = bars
	m.calendarDT = calendarDT
	m.tradingDT = tradingDT
	m.turnover = make(map[string]int64)
}

// Match attempts to fill every open order against the current snapshot.
// Orders it cannot fill this bar are left untouched (deferred); orders
// it declines are marked rejected or cancelled. A TRADE event is
// published for every fill.
func (m *Matcher) Match(openOrders []accountOrder) error {
	for _, ao := range openOrders {
		if err := m.matchOne(ao.account, ao.order); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) matchOne(account Account, order *domain.Order) error {
	bar, ok := m.bars[order.InstrumentID]
	if !ok || bar.Status == domain.BarError || bar.IsNaN {
		ins, found := m.ctx.Data.Instrument(order.InstrumentID)
		if found && ins.ListedOn(m.tradingDT) {
			order.MarkRejected(fmt.Sprintf(
				"Order Cancelled: current security [%s] can not be traded in listed date [%s]",
				order.InstrumentID, ins.ListedDate.Format("2006-01-02")))
		} else {
			order.MarkRejected(fmt.Sprintf(
				"Order Cancelled: current bar [%s] miss market data.", order.InstrumentID))
		}
		return nil
	}

	dealPrice := m.dealPrice(bar)

	if order.Type == domain.OrderLimit {
		if order.Price > bar.LimitUp {
			order.MarkRejected(fmt.Sprintf(
				"Order Rejected: limit order price %.4f is higher than limit up %.4f.",
				order.Price, bar.LimitUp))
			return nil
		}
		if order.Price < bar.LimitDown {
			order.MarkRejected(fmt.Sprintf(
				"Order Rejected: limit order price %.4f is lower than limit down %.4f.",
				order.Price, bar.LimitDown))
			return nil
		}
		// Price not reached yet: stay open for a later bar.
		if order.Side == domain.SideBuy && order.Price < dealPrice {
			return nil
		}
		if order.Side == domain.SideSell && order.Price > dealPrice {
			return nil
		}
	} else if m.barLimit {
		if order.Side == domain.SideBuy && bar.Status == domain.BarLimitUp {
			order.MarkRejected(fmt.Sprintf(
				"Order Cancelled: current bar [%s] reach the limit_up price.", order.InstrumentID))
			return nil
		}
		if order.Side == domain.SideSell && bar.Status == domain.BarLimitDown {
			order.MarkRejected(fmt.Sprintf(
				"Order Cancelled: current bar [%s] reach the limit_down price.", order.InstrumentID))
			return nil
		}
	}

	// Locked bars defer limit orders on the blocked side.
	if m.barLimit {
		if order.Side == domain.SideBuy && bar.Status == domain.BarLimitUp {
			return nil
		}
		if order.Side == domain.SideSell && bar.Status == domain.BarLimitDown {
			return nil
		}
	}

	volumeLimit := m.volumeLimit(bar, order.InstrumentID)
	if volumeLimit <= 0 {
		if order.Type == domain.OrderMarket {
			order.MarkCancelled(fmt.Sprintf(
				"Order Cancelled: market order %s volume %d due to volume limit",
				order.InstrumentID, order.Quantity))
		}
		return nil
	}

	fill := order.UnfilledQuantity()
	if volumeLimit < fill {
		fill = volumeLimit
	}

	position := account.Portfolio().Position(bar.Instrument)
	closeToday := position.CloseTodayAmount(fill, order.Side)
	price := account.SlippageDecider().TradePrice(order, dealPrice)

	trade := domain.NewTrade(order, m.calendarDT, m.tradingDT, price, fill, closeToday)
	trade.Commission = account.CommissionDecider().Commission(trade)
	trade.Tax = account.TaxDecider().Tax(trade)

	order.Fill(fill)
	m.turnover[order.InstrumentID] += fill

	if err := m.ctx.Bus.Publish(Event{Type: EventTrade, Account: account, Order: order, Trade: trade}); err != nil {
		return err
	}

	if order.Type == domain.OrderMarket && order.UnfilledQuantity() != 0 {
		order.MarkCancelled(fmt.Sprintf(
			"Order Cancelled: market order %s volume %d is larger than 25 percent"+
				" of current bar volume, fill %d actually",
			order.InstrumentID, order.Quantity, order.FilledQuantity))
	}
	return nil
}

// volumeLimit is the lot-aligned share count still available to this
// strategy under the volume-percent cap.
func (m *Matcher) volumeLimit(bar domain.Bar, instrumentID string) int64 {
	lot := bar.Instrument.Lot()
	limit := int64(bar.Volume*m.volumePercent) - m.turnover[instrumentID]
	return limit / lot * lot
}
