package engine

import (
	"fmt"
	"sort"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Broker orchestrates order submission and matching. It owns the
// matcher, the accounts and the two order queues: open orders are
// eligible for matching this session, delayed orders wait for the next
// one (daily frequency with next-bar-open matching).
type Broker struct {
	ctx      *Context
	matcher  *Matcher
	accounts map[string]Account

	openOrders    []accountOrder
	delayedOrders []accountOrder

	matchImmediately bool
}

// NewBroker builds the broker and its accounts from the run config, and
// registers everything on the bus: the broker's own listeners first,
// then each account's in a fixed order.
func NewBroker(ctx *Context) *Broker {
	cfg := ctx.Config
	b := &Broker{ctx: ctx}

	if cfg.Base.MatchingType == config.MatchingCurrentBarClose {
		b.matcher = NewMatcher(ctx, func(bar domain.Bar) float64 { return bar.Close },
			cfg.Validator.BarLimitEnabled(), cfg.Matcher.VolumePercent)
		b.matchImmediately = true
	} else {
		b.matcher = NewMatcher(ctx, func(bar domain.Bar) float64 { return bar.Open },
			cfg.Validator.BarLimitEnabled(), cfg.Matcher.VolumePercent)
	}

	ctx.Bus.AddListener(EventBeforeTrading, b.onBeforeTrading)
	ctx.Bus.AddListener(EventBar, b.onBar)
	ctx.Bus.AddListener(EventTick, b.onTick)
	ctx.Bus.AddListener(EventAfterTrading, b.onAfterTrading)

	b.accounts = initAccounts(ctx)
	for _, typ := range []string{config.AccountStock, config.AccountFuture, config.AccountBenchmark} {
		if account, ok := b.accounts[typ]; ok {
			account.Register(ctx.Bus)
		}
	}
	return b
}

// initAccounts builds the account set declared in the config. The
// benchmark account is added automatically when a benchmark is set,
// funded with the sum of the trading accounts' cash.
func initAccounts(ctx *Context) map[string]Account {
	cfg := ctx.Config
	startDate, _ := cfg.StartDate()
	accounts := make(map[string]Account)
	var totalCash float64
	for _, typ := range cfg.Base.AccountList {
		switch typ {
		case config.AccountStock:
			accounts[typ] = NewStockAccount(ctx, cfg.Base.StockStartingCash, startDate)
			totalCash += cfg.Base.StockStartingCash
		case config.AccountFuture:
			accounts[typ] = NewFutureAccount(ctx, cfg.Base.FutureStartingCash, startDate)
			totalCash += cfg.Base.FutureStartingCash
		}
	}
	if cfg.Base.Benchmark != "" {
		accounts[config.AccountBenchmark] = NewBenchmarkAccount(ctx, totalCash, startDate)
	}
	return accounts
}

// Accounts returns the account set keyed by type.
func (b *Broker) Accounts() map[string]Account { return b.accounts }

// OpenOrders returns the orders eligible for matching this session.
func (b *Broker) OpenOrders() []*domain.Order {
	orders := make([]*domain.Order, len(b.openOrders))
	for i, ao := range b.openOrders {
		orders[i] = ao.order
	}
	return orders
}

// accountFor routes an instrument to its account by asset class.
func (b *Broker) accountFor(instrumentID string) (Account, error) {
	ins, ok := b.ctx.Data.Instrument(instrumentID)
	if !ok {
		return nil, fmt.Errorf("engine: unknown instrument %q", instrumentID)
	}
	typ := config.AccountStock
	if ins.Type == domain.InstrumentFuture {
		typ = config.AccountFuture
	}
	account, ok := b.accounts[typ]
	if !ok {
		return nil, fmt.Errorf("engine: no %s account configured for %q", typ, instrumentID)
	}
	return account, nil
}

// SubmitOrder runs an order through pending-new validation and either
// queues it for matching, delays it to the next session, or stops on a
// validator rejection.
func (b *Broker) SubmitOrder(order *domain.Order) error {
	account, err := b.accountFor(order.InstrumentID)
	if err != nil {
		return err
	}

	if err := b.ctx.Bus.Publish(Event{Type: EventOrderPendingNew, Account: account, Order: order}); err != nil {
		return err
	}
	account.AppendOrder(order)
	if order.IsFinal() {
		return nil
	}

	if b.ctx.Config.Base.Frequency == config.FrequencyDaily && !b.matchImmediately {
		b.delayedOrders = append(b.delayedOrders, accountOrder{account, order})
		return nil
	}

	b.openOrders = append(b.openOrders, accountOrder{account, order})
	order.Activate()
	if err := b.ctx.Bus.Publish(Event{Type: EventOrderCreationPass, Account: account, Order: order}); err != nil {
		return err
	}
	if b.matchImmediately {
		return b.match()
	}
	return nil
}

// CancelOrder cancels an order on user request and removes it from
// whichever queue holds it; absence is tolerated. An order already in a
// terminal state gets a cancellation reject instead: its reservation was
// released when it left the book, and must not be released twice.
func (b *Broker) CancelOrder(order *domain.Order) error {
	account, err := b.accountFor(order.InstrumentID)
	if err != nil {
		return err
	}
	if order.IsFinal() {
		return b.ctx.Bus.Publish(Event{Type: EventOrderCancellationReject, Account: account, Order: order})
	}
	if err := b.ctx.Bus.Publish(Event{Type: EventOrderPendingCancel, Account: account, Order: order}); err != nil {
		return err
	}
	order.MarkCancelled(fmt.Sprintf("%s order has been cancelled by user.", order.ID))
	if err := b.ctx.Bus.Publish(Event{Type: EventOrderCancellationPass, Account: account, Order: order}); err != nil {
		return err
	}
	b.openOrders = removeOrder(b.openOrders, order)
	b.delayedOrders = removeOrder(b.delayedOrders, order)
	return nil
}

// onBeforeTrading reactivates orders carried over from the previous
// session and re-announces them.
func (b *Broker) onBeforeTrading(Event) error {
	for _, ao := range b.openOrders {
		ao.order.Activate()
		if err := b.ctx.Bus.Publish(Event{Type: EventOrderCreationPass, Account: ao.account, Order: ao.order}); err != nil {
			return err
		}
	}
	return nil
}

// onBar refreshes the matcher's snapshot and matches the open queue.
func (b *Broker) onBar(e Event) error {
	b.matcher.Update(b.ctx.CalendarDT(), b.ctx.TradingDT(), e.Bars)
	return b.match()
}

// onTick is a placeholder: tick matching is not supported yet.
func (b *Broker) onTick(Event) error {
	return nil
}

// onAfterTrading rejects whatever could not match before the close and
// promotes the delayed queue for the next session.
func (b *Broker) onAfterTrading(Event) error {
	for _, ao := range b.openOrders {
		ao.order.MarkRejected(fmt.Sprintf(
			"Order Rejected: %s can not match. Market close.", ao.order.InstrumentID))
		if err := b.ctx.Bus.Publish(Event{Type: EventOrderUnsolicitedUpdate, Account: ao.account, Order: ao.order}); err != nil {
			return err
		}
	}
	b.openOrders = b.delayedOrders
	b.delayedOrders = nil
	return nil
}

// match runs a matcher pass and flushes terminal orders out of the open
// queue, notifying rejections and cancellations.
func (b *Broker) match() error {
	if err := b.matcher.Match(b.openOrders); err != nil {
		return err
	}
	var remaining, finals []accountOrder
	for _, ao := range b.openOrders {
		if ao.order.IsFinal() {
			finals = append(finals, ao)
		} else {
			remaining = append(remaining, ao)
		}
	}
	b.openOrders = remaining

	for _, ao := range finals {
		switch ao.order.Status {
		case domain.OrderRejected, domain.OrderCancelled:
			if err := b.ctx.Bus.Publish(Event{Type: EventOrderUnsolicitedUpdate, Account: ao.account, Order: ao.order}); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetState serializes the ids of the delayed orders. Everything else is
// reconstructed from the accounts' order books on restore.
func (b *Broker) GetState() ([]byte, error) {
	ids := make([]string, len(b.delayedOrders))
	for i, ao := range b.delayedOrders {
		ids[i] = ao.order.ID
	}
	sort.Strings(ids)
	state, err := msgpack.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("engine: broker get state: %w", err)
	}
	return state, nil
}

// SetState rebuilds the two queues by partitioning each account's
// non-terminal orders: saved ids go to the delayed queue, the rest to
// the open queue.
func (b *Broker) SetState(state []byte) error {
	var ids []string
	if err := msgpack.Unmarshal(state, &ids); err != nil {
		return fmt.Errorf("engine: broker set state: %w", err)
	}
	delayed := make(map[string]bool, len(ids))
	for _, id := range ids {
		delayed[id] = true
	}

	b.openOrders = nil
	b.delayedOrders = nil
	for _, typ := range []string{config.AccountStock, config.AccountFuture, config.AccountBenchmark} {
		account, ok := b.accounts[typ]
		if !ok {
			continue
		}
		orderIDs := make([]string, 0, len(account.DailyOrders()))
		for id := range account.DailyOrders() {
			orderIDs = append(orderIDs, id)
		}
		sort.Strings(orderIDs)
		for _, id := range orderIDs {
			order := account.DailyOrders()[id]
			if order.IsFinal() {
				continue
			}
			if delayed[order.ID] {
				b.delayedOrders = append(b.delayedOrders, accountOrder{account, order})
			} else {
				b.openOrders = append(b.openOrders, accountOrder{account, order})
			}
		}
	}
	return nil
}

func removeOrder(queue []accountOrder, order *domain.Order) []accountOrder {
	for i, ao := range queue {
		if ao.order == order {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}
