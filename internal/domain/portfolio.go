package domain

import "time"

// Portfolio is the per-account aggregate: cash, reserved cash, holdings
// and pending corporate actions.
type Portfolio struct {
	StartingCash            float64
	Cash                    float64
	FrozenCash              float64
	TotalCommission         float64
	TotalTax                float64
	DividendReceivable      float64
	YesterdayPortfolioValue float64
	StartDate               time.Time

	Positions    map[string]*Position
	DividendInfo map[string]Dividend
}

// NewPortfolio creates a portfolio funded with the starting cash.
func NewPortfolio(startingCash float64, startDate time.Time) *Portfolio {
	return &Portfolio{
		StartingCash:            startingCash,
		Cash:                    startingCash,
		YesterdayPortfolioValue: startingCash,
		StartDate:               startDate,
		Positions:               make(map[string]*Position),
		DividendInfo:            make(map[string]Dividend),
	}
}

// Position returns the holding for the instrument, creating an empty one
// on first access.
func (pf *Portfolio) Position(ins Instrument) *Position {
	p, ok := pf.Positions[ins.ID]
	if !ok {
		p = NewPosition(ins)
		pf.Positions[ins.ID] = p
	}
	return p
}

// MarketValue is the sum of all position market values.
func (pf *Portfolio) MarketValue() float64 {
	var total float64
	for _, p := range pf.Positions {
		total += p.MarketValue
	}
	return total
}

// TotalMargin is the sum of margin held across positions (futures).
func (pf *Portfolio) TotalMargin() float64 {
	var total float64
	for _, p := range pf.Positions {
		total += p.Margin()
	}
	return total
}

// PortfolioValue is the account's total worth. Frozen cash is included:
// it is reserved, not spent, until the order it backs fills or dies.
func (pf *Portfolio) PortfolioValue() float64 {
	return pf.Cash + pf.FrozenCash + pf.MarketValue() + pf.DividendReceivable + pf.TotalMargin()
}

// DailyValuation captures the portfolio at one settlement.
type DailyValuation struct {
	Date               time.Time
	Cash               float64
	FrozenCash         float64
	MarketValue        float64
	DividendReceivable float64
	PortfolioValue     float64
	TotalCommission    float64
	TotalTax           float64
}

// Snapshot builds the daily valuation record for the given trading date.
func (pf *Portfolio) Snapshot(date time.Time) DailyValuation {
	return DailyValuation{
		Date:               date,
		Cash:               pf.Cash,
		FrozenCash:         pf.FrozenCash,
		MarketValue:        pf.MarketValue(),
		DividendReceivable: pf.DividendReceivable,
		PortfolioValue:     pf.PortfolioValue(),
		TotalCommission:    pf.TotalCommission,
		TotalTax:           pf.TotalTax,
	}
}
