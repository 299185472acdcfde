package engine

import "github.com/alejandrodnm/backsim/internal/domain"

// EventType enumerates the closed set of lifecycle events.
type EventType int

const (
	EventBeforeTrading EventType = iota
	EventBar
	EventTick
	EventAfterTrading
	EventSettlement
	EventOrderPendingNew
	EventOrderCreationPass
	EventOrderCreationReject
	EventOrderPendingCancel
	EventOrderCancellationPass
	EventOrderCancellationReject
	EventOrderUnsolicitedUpdate
	EventTrade
)

var eventNames = map[EventType]string{
	EventBeforeTrading:           "BEFORE_TRADING",
	EventBar:                     "BAR",
	EventTick:                    "TICK",
	EventAfterTrading:            "AFTER_TRADING",
	EventSettlement:              "SETTLEMENT",
	EventOrderPendingNew:         "ORDER_PENDING_NEW",
	EventOrderCreationPass:       "ORDER_CREATION_PASS",
	EventOrderCreationReject:     "ORDER_CREATION_REJECT",
	EventOrderPendingCancel:      "ORDER_PENDING_CANCEL",
	EventOrderCancellationPass:   "ORDER_CANCELLATION_PASS",
	EventOrderCancellationReject: "ORDER_CANCELLATION_REJECT",
	EventOrderUnsolicitedUpdate:  "ORDER_UNSOLICITED_UPDATE",
	EventTrade:                   "TRADE",
}

func (t EventType) String() string { return eventNames[t] }

// Event is the payload handed to listeners. Only the fields relevant to
// the event type are set.
type Event struct {
	Type    EventType
	Account Account
	Order   *domain.Order
	Trade   domain.Trade
	Bars    domain.BarDict
}

// Handler processes one event. A non-nil error aborts the publish chain
// and propagates to the driver.
type Handler func(Event) error

// EventBus dispatches events synchronously to listeners in registration
// order. Publish is re-entrant: handlers may publish further events, and
// those complete before the outer Publish returns. The bus never
// deduplicates, reorders or coalesces.
type EventBus struct {
	listeners map[EventType][]Handler
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[EventType][]Handler)}
}

// AddListener appends a handler to the event's dispatch list.
func (b *EventBus) AddListener(t EventType, h Handler) {
	b.listeners[t] = append(b.listeners[t], h)
}

// Publish invokes the event's listeners in order. The first handler
// error stops dispatch; listeners registered before the failing one have
// already run.
func (b *EventBus) Publish(e Event) error {
	for _, h := range b.listeners[e.Type] {
		if err := h(e); err != nil {
			return err
		}
	}
	return nil
}
