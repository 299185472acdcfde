package engine

import "github.com/alejandrodnm/backsim/internal/domain"

// Default decider parameters for China A-share simulation.
const (
	defaultCommissionRate = 0.0008
	defaultCommissionMin  = 5.0
	defaultTaxRate        = 0.001 // stamp tax, sell side only
)

// FixedSlippage widens the deal price against the order by a fixed rate.
// Rate 0 returns the deal price unchanged.
type FixedSlippage struct {
	Rate float64
}

func (s FixedSlippage) TradePrice(order *domain.Order, dealPrice float64) float64 {
	if order.Side == domain.SideBuy {
		return dealPrice * (1 + s.Rate)
	}
	return dealPrice * (1 - s.Rate)
}

// RateCommission charges a proportional commission with a per-trade
// minimum, on both sides.
type RateCommission struct {
	Rate float64
	Min  float64
}

func (c RateCommission) Commission(trade domain.Trade) float64 {
	commission := c.Rate * trade.Price * float64(trade.Amount)
	if commission < c.Min {
		commission = c.Min
	}
	return commission
}

// SellTax charges a proportional tax on sells only (stamp tax).
type SellTax struct {
	Rate float64
}

func (t SellTax) Tax(trade domain.Trade) float64 {
	if trade.Order.Side != domain.SideSell {
		return 0
	}
	return t.Rate * trade.Price * float64(trade.Amount)
}

// NoTax is the tax decider for asset classes without a transaction tax.
type NoTax struct{}

func (NoTax) Tax(domain.Trade) float64 { return 0 }

func defaultStockDeciders() (FixedSlippage, RateCommission, SellTax) {
	return FixedSlippage{},
		RateCommission{Rate: defaultCommissionRate, Min: defaultCommissionMin},
		SellTax{Rate: defaultTaxRate}
}
