package ports

import "github.com/alejandrodnm/backsim/internal/domain"

// SlippageDecider turns the matcher's deal price into the final fill price.
type SlippageDecider interface {
	TradePrice(order *domain.Order, dealPrice float64) float64
}

// CommissionDecider prices the commission for a fill.
type CommissionDecider interface {
	Commission(trade domain.Trade) float64
}

// TaxDecider prices the transaction tax for a fill.
type TaxDecider interface {
	Tax(trade domain.Trade) float64
}
