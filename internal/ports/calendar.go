package ports

import "time"

// Calendar supplies the trading timeline for a run.
type Calendar interface {
	// TradingDays returns the ordered trading dates in [start, end].
	TradingDays(start, end time.Time) []time.Time

	// BarTimes returns the ordered bar timestamps within one trading day.
	// Daily frequency yields a single timestamp.
	BarTimes(day time.Time) []time.Time
}
