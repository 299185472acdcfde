package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
	"github.com/vmihailenco/msgpack/v5"
)

// Account is one of the closed set of account controllers (stock,
// future, benchmark). Each listens on the lifecycle events relevant to
// its asset class and mutates its own portfolio.
type Account interface {
	Type() string
	Portfolio() *domain.Portfolio

	SlippageDecider() ports.SlippageDecider
	CommissionDecider() ports.CommissionDecider
	TaxDecider() ports.TaxDecider

	// Register subscribes the account's handlers on the bus. Called once
	// during construction; handler order within an event follows
	// registration order.
	Register(bus *EventBus)

	// AppendOrder records an order routed to this account.
	AppendOrder(o *domain.Order)
	// DailyOrders is the set of orders seen this run, keyed by id.
	DailyOrders() map[string]*domain.Order

	// Dailies is the persisted daily valuation series.
	Dailies() []domain.DailyValuation

	// GetState / SetState round-trip the account's full state as an
	// opaque blob. Persist → restore → persist is byte identical.
	GetState() ([]byte, error)
	SetState(state []byte) error
}

// baseAccount carries the bookkeeping shared by every account variant.
type baseAccount struct {
	typ        string
	ctx        *Context
	portfolio  *domain.Portfolio
	slippage   ports.SlippageDecider
	commission ports.CommissionDecider
	tax        ports.TaxDecider

	dailyOrders map[string]*domain.Order
	dailies     []domain.DailyValuation
}

func newBaseAccount(ctx *Context, typ string, startingCash float64, startDate time.Time,
	slippage ports.SlippageDecider, commission ports.CommissionDecider, tax ports.TaxDecider) baseAccount {
	return baseAccount{
		typ:         typ,
		ctx:         ctx,
		portfolio:   domain.NewPortfolio(startingCash, startDate),
		slippage:    slippage,
		commission:  commission,
		tax:         tax,
		dailyOrders: make(map[string]*domain.Order),
	}
}

func (a *baseAccount) Type() string                           { return a.typ }
func (a *baseAccount) Portfolio() *domain.Portfolio           { return a.portfolio }
func (a *baseAccount) SlippageDecider() ports.SlippageDecider { return a.slippage }
func (a *baseAccount) CommissionDecider() ports.CommissionDecider {
	return a.commission
}
func (a *baseAccount) TaxDecider() ports.TaxDecider         { return a.tax }
func (a *baseAccount) AppendOrder(o *domain.Order)          { a.dailyOrders[o.ID] = o }
func (a *baseAccount) DailyOrders() map[string]*domain.Order { return a.dailyOrders }
func (a *baseAccount) Dailies() []domain.DailyValuation     { return a.dailies }

// portfolioPersist appends today's valuation to the daily series.
func (a *baseAccount) portfolioPersist(date time.Time) {
	a.dailies = append(a.dailies, a.portfolio.Snapshot(date))
}

// handleDividendPayable pays out every pending dividend whose payable
// date is today: cash in, receivable out, entry removed.
func (a *baseAccount) handleDividendPayable(date time.Time) {
	pf := a.portfolio
	for id, div := range pf.DividendInfo {
		if !div.PayableOn(date) {
			continue
		}
		perShare := div.PerShare()
		if perShare > 0 && div.Quantity > 0 {
			cash := perShare * float64(div.Quantity)
			pf.DividendReceivable -= cash
			pf.Cash += cash
		}
		delete(pf.DividendInfo, id)
	}
}

// handleDividendExDividend records a pending dividend for every position
// whose instrument has a record date today, freezing the quantity.
func (a *baseAccount) handleDividendExDividend(date time.Time) {
	pf := a.portfolio
	for id, pos := range pf.Positions {
		div, ok := a.ctx.Data.DividendByBookDate(id, date)
		if !ok {
			continue
		}
		div.InstrumentID = id
		div.Quantity = pos.Quantity()
		pf.DividendInfo[id] = div
		pf.DividendReceivable += div.PerShare() * float64(div.Quantity)
	}
}

// accountState is the serialized form of an account. Map-backed holdings
// travel as slices sorted by instrument id: map iteration order is not
// stable, and the blob must round-trip byte identical.
type accountState struct {
	Portfolio domain.Portfolio
	Positions []positionRecord
	Dividends []dividendRecord
	Dailies   []domain.DailyValuation
	Orders    []domain.Order
}

type positionRecord struct {
	InstrumentID string
	Position     domain.Position
}

type dividendRecord struct {
	InstrumentID string
	Dividend     domain.Dividend
}

func (a *baseAccount) GetState() ([]byte, error) {
	pf := *a.portfolio
	pf.Positions = nil
	pf.DividendInfo = nil

	positions := make([]positionRecord, 0, len(a.portfolio.Positions))
	for _, id := range sortedKeys(a.portfolio.Positions) {
		positions = append(positions, positionRecord{id, *a.portfolio.Positions[id]})
	}
	dividends := make([]dividendRecord, 0, len(a.portfolio.DividendInfo))
	for _, id := range sortedKeys(a.portfolio.DividendInfo) {
		dividends = append(dividends, dividendRecord{id, a.portfolio.DividendInfo[id]})
	}
	orders := make([]domain.Order, 0, len(a.dailyOrders))
	for _, id := range sortedKeys(a.dailyOrders) {
		orders = append(orders, *a.dailyOrders[id])
	}

	state, err := msgpack.Marshal(accountState{
		Portfolio: pf,
		Positions: positions,
		Dividends: dividends,
		Dailies:   a.dailies,
		Orders:    orders,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: account %s get state: %w", a.typ, err)
	}
	return state, nil
}

func (a *baseAccount) SetState(state []byte) error {
	var s accountState
	if err := msgpack.Unmarshal(state, &s); err != nil {
		return fmt.Errorf("engine: account %s set state: %w", a.typ, err)
	}
	pf := s.Portfolio
	pf.Positions = make(map[string]*domain.Position, len(s.Positions))
	for i := range s.Positions {
		pos := s.Positions[i].Position
		pf.Positions[s.Positions[i].InstrumentID] = &pos
	}
	pf.DividendInfo = make(map[string]domain.Dividend, len(s.Dividends))
	for _, d := range s.Dividends {
		pf.DividendInfo[d.InstrumentID] = d.Dividend
	}
	a.portfolio = &pf
	a.dailies = s.Dailies
	a.dailyOrders = make(map[string]*domain.Order, len(s.Orders))
	for i := range s.Orders {
		o := s.Orders[i]
		a.dailyOrders[o.ID] = &o
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// instrument resolves reference data, falling back to a bare record so a
// restored position never loses its id.
func (a *baseAccount) instrument(id string) domain.Instrument {
	if ins, ok := a.ctx.Data.Instrument(id); ok {
		return ins
	}
	return domain.Instrument{ID: id, RoundLot: 1}
}
