package engine

import "github.com/alejandrodnm/backsim/internal/domain"

// Strategy is the user code driven through the lifecycle. Each callback
// runs synchronously inside the corresponding event; errors abort the run.
type Strategy interface {
	Init(t *Trader) error
	BeforeTrading(t *Trader) error
	HandleBar(t *Trader, bars domain.BarDict) error
	AfterTrading(t *Trader) error
}

// registerStrategy subscribes the strategy callbacks after the broker
// and accounts, so the strategy always observes reconciled state.
func registerStrategy(bus *EventBus, s Strategy, t *Trader) {
	bus.AddListener(EventBeforeTrading, func(Event) error { return s.BeforeTrading(t) })
	bus.AddListener(EventBar, func(e Event) error { return s.HandleBar(t, e.Bars) })
	bus.AddListener(EventAfterTrading, func(Event) error { return s.AfterTrading(t) })
}
