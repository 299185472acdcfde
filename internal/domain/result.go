package domain

import "time"

// RiskMetrics summarizes a run's daily portfolio series.
type RiskMetrics struct {
	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64 // annualized std dev of daily returns
	Sharpe           float64
	MaxDrawdown      float64 // positive fraction, e.g. 0.12 = -12%
	TradingDays      int
}

// RunResult is what a completed simulation hands back to the caller:
// the daily valuation series per account, the full order and trade
// ledger, and the risk metrics over the combined series.
type RunResult struct {
	StartDate time.Time
	EndDate   time.Time
	Dailies   map[string][]DailyValuation // keyed by account type
	Orders    []Order
	Trades    []TradeRecord
	Metrics   RiskMetrics
}

// TradeRecord is the flattened, order-independent form of a Trade kept
// in the run ledger.
type TradeRecord struct {
	ExecID       string
	OrderID      string
	InstrumentID string
	Side         Side
	Price        float64
	Amount       int64
	Commission   float64
	Tax          float64
	TradingDT    time.Time
}

// RecordOf flattens a trade for the ledger.
func RecordOf(t Trade) TradeRecord {
	return TradeRecord{
		ExecID:       t.ExecID,
		OrderID:      t.Order.ID,
		InstrumentID: t.Order.InstrumentID,
		Side:         t.Order.Side,
		Price:        t.Price,
		Amount:       t.Amount,
		Commission:   t.Commission,
		Tax:          t.Tax,
		TradingDT:    t.TradingDT,
	}
}
