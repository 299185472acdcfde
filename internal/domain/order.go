package domain

import (
	"time"

	"github.com/google/uuid"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType distinguishes market from limit orders.
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// OrderStatus is the order lifecycle state. Terminal states are sticky:
// once filled, cancelled or rejected an order never changes again.
type OrderStatus string

const (
	OrderPendingNew OrderStatus = "PENDING_NEW"
	OrderActive     OrderStatus = "ACTIVE"
	OrderFilled     OrderStatus = "FILLED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRejected   OrderStatus = "REJECTED"
)

// Order tracks a single placement through its lifecycle:
// pending-new → active → (partially filled)* → filled | cancelled | rejected.
type Order struct {
	ID              string
	InstrumentID    string
	Side            Side
	Type            OrderType
	Price           float64 // limit price, or the reference price for market orders
	FrozenPrice     float64 // price used to reserve cash at submission
	Quantity        int64
	FilledQuantity  int64
	Status          OrderStatus
	CreationTime    time.Time
	RejectionReason string
}

// NewLimitOrder creates a pending-new limit order.
func NewLimitOrder(instrumentID string, side Side, quantity int64, price float64, now time.Time) *Order {
	return &Order{
		ID:           uuid.New().String(),
		InstrumentID: instrumentID,
		Side:         side,
		Type:         OrderLimit,
		Price:        price,
		FrozenPrice:  price,
		Quantity:     quantity,
		Status:       OrderPendingNew,
		CreationTime: now,
	}
}

// NewMarketOrder creates a pending-new market order. refPrice is the last
// known price, used to reserve cash until the fill price is known.
func NewMarketOrder(instrumentID string, side Side, quantity int64, refPrice float64, now time.Time) *Order {
	return &Order{
		ID:           uuid.New().String(),
		InstrumentID: instrumentID,
		Side:         side,
		Type:         OrderMarket,
		Price:        refPrice,
		FrozenPrice:  refPrice,
		Quantity:     quantity,
		Status:       OrderPendingNew,
		CreationTime: now,
	}
}

// UnfilledQuantity is the quantity still open on the order.
func (o *Order) UnfilledQuantity() int64 {
	return o.Quantity - o.FilledQuantity
}

// IsFinal reports whether the order reached a terminal state.
func (o *Order) IsFinal() bool {
	switch o.Status {
	case OrderFilled, OrderCancelled, OrderRejected:
		return true
	}
	return false
}

// Activate moves a pending-new order into the active state. Terminal
// orders are left untouched.
func (o *Order) Activate() {
	if o.IsFinal() {
		return
	}
	o.Status = OrderActive
}

// Fill applies a fill of the given amount. FilledQuantity is monotone
// non-decreasing; filling the full quantity transitions to FILLED.
func (o *Order) Fill(amount int64) {
	if o.IsFinal() || amount <= 0 {
		return
	}
	o.FilledQuantity += amount
	if o.FilledQuantity >= o.Quantity {
		o.FilledQuantity = o.Quantity
		o.Status = OrderFilled
	}
}

// MarkRejected transitions to REJECTED with a reason. No-op on terminal orders.
func (o *Order) MarkRejected(reason string) {
	if o.IsFinal() {
		return
	}
	o.Status = OrderRejected
	o.RejectionReason = reason
}

// MarkCancelled transitions to CANCELLED with a reason. No-op on terminal orders.
func (o *Order) MarkCancelled(reason string) {
	if o.IsFinal() {
		return
	}
	o.Status = OrderCancelled
	o.RejectionReason = reason
}
