package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable fill record produced by the matcher.
type Trade struct {
	ExecID           string
	Order            *Order
	Price            float64 // post-slippage fill price
	Amount           int64
	Commission       float64
	Tax              float64
	CloseTodayAmount int64 // futures: how much of the fill offsets today's opens
	CalendarDT       time.Time
	TradingDT        time.Time
}

// NewTrade builds a fill for an order. Commission and tax are attached by
// the account deciders after construction.
func NewTrade(order *Order, calendarDT, tradingDT time.Time, price float64, amount, closeToday int64) Trade {
	return Trade{
		ExecID:           uuid.New().String(),
		Order:            order,
		Price:            price,
		Amount:           amount,
		CloseTodayAmount: closeToday,
		CalendarDT:       calendarDT,
		TradingDT:        tradingDT,
	}
}

// Value is the notional of the fill (price × amount × multiplier).
func (t Trade) Value(multiplier float64) float64 {
	if multiplier <= 0 {
		multiplier = 1
	}
	return t.Price * float64(t.Amount) * multiplier
}
