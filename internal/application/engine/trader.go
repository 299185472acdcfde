package engine

import (
	"fmt"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// Trader is the order API handed to strategies and mods. Invalid input
// (unknown instrument, bad quantity) is reported synchronously, before
// any event fires; rejections after submission are data on the order.
type Trader struct {
	ctx    *Context
	broker *Broker
}

// Context exposes the simulation context (clocks, bars, data access).
func (t *Trader) Context() *Context { return t.ctx }

// OrderShares places a market order: positive quantity buys, negative
// sells. Buy quantities are rounded down to the instrument's round lot.
func (t *Trader) OrderShares(instrumentID string, quantity int64) (*domain.Order, error) {
	ins, side, qty, err := t.resolve(instrumentID, quantity)
	if err != nil {
		return nil, err
	}
	ref, err := t.refPrice(instrumentID)
	if err != nil {
		return nil, err
	}
	order := domain.NewMarketOrder(ins.ID, side, qty, ref, t.ctx.CalendarDT())
	if err := t.broker.SubmitOrder(order); err != nil {
		return nil, err
	}
	return order, nil
}

// OrderLimit places a limit order at the given price.
func (t *Trader) OrderLimit(instrumentID string, quantity int64, price float64) (*domain.Order, error) {
	ins, side, qty, err := t.resolve(instrumentID, quantity)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, fmt.Errorf("engine: invalid limit price %.4f for %s", price, instrumentID)
	}
	order := domain.NewLimitOrder(ins.ID, side, qty, price, t.ctx.CalendarDT())
	if err := t.broker.SubmitOrder(order); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder cancels an open or delayed order.
func (t *Trader) CancelOrder(order *domain.Order) error {
	return t.broker.CancelOrder(order)
}

// AccountFor returns the account that trades the given instrument.
func (t *Trader) AccountFor(instrumentID string) (Account, error) {
	return t.broker.accountFor(instrumentID)
}

// Position returns the current holding in the instrument, if any.
func (t *Trader) Position(instrumentID string) (*domain.Position, bool) {
	account, err := t.broker.accountFor(instrumentID)
	if err != nil {
		return nil, false
	}
	pos, ok := account.Portfolio().Positions[instrumentID]
	return pos, ok
}

func (t *Trader) resolve(instrumentID string, quantity int64) (domain.Instrument, domain.Side, int64, error) {
	ins, ok := t.ctx.Data.Instrument(instrumentID)
	if !ok {
		return domain.Instrument{}, "", 0, fmt.Errorf("engine: unknown instrument %q", instrumentID)
	}
	if quantity == 0 {
		return domain.Instrument{}, "", 0, fmt.Errorf("engine: zero quantity order for %s", instrumentID)
	}
	side := domain.SideBuy
	qty := quantity
	if quantity < 0 {
		side = domain.SideSell
		qty = -quantity
	}
	if side == domain.SideBuy {
		lot := ins.Lot()
		qty = qty / lot * lot
		if qty == 0 {
			return domain.Instrument{}, "", 0, fmt.Errorf(
				"engine: order quantity %d below round lot %d for %s", quantity, lot, instrumentID)
		}
	}
	return ins, side, qty, nil
}

// refPrice is the last known price used to reserve cash for market orders.
func (t *Trader) refPrice(instrumentID string) (float64, error) {
	if bar, ok := t.ctx.CurrentBars()[instrumentID]; ok && !bar.IsNaN {
		return bar.Close, nil
	}
	return 0, fmt.Errorf("engine: no market data for %s in current bar", instrumentID)
}
