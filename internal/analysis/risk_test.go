package analysis_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/backsim/internal/analysis"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(values ...float64) []domain.DailyValuation {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	out := make([]domain.DailyValuation, len(values))
	for i, v := range values {
		out[i] = domain.DailyValuation{
			Date:           start.AddDate(0, 0, i),
			PortfolioValue: v,
		}
	}
	return out
}

func TestCompute_EmptyAndSinglePoint(t *testing.T) {
	m := analysis.Compute(nil, analysis.DefaultRiskFreeRate)
	assert.Equal(t, 0, m.TradingDays)
	assert.Equal(t, 0.0, m.TotalReturn)

	m = analysis.Compute(series(100000), analysis.DefaultRiskFreeRate)
	assert.Equal(t, 1, m.TradingDays)
	assert.Equal(t, 0.0, m.TotalReturn)
}

func TestCompute_TotalReturn(t *testing.T) {
	m := analysis.Compute(series(100000, 105000, 110000), analysis.DefaultRiskFreeRate)
	require.Equal(t, 3, m.TradingDays)
	assert.InDelta(t, 0.10, m.TotalReturn, 0.0001)
	assert.Greater(t, m.AnnualizedReturn, m.TotalReturn) // 3 days annualized
}

func TestCompute_FlatSeriesHasZeroVolatility(t *testing.T) {
	m := analysis.Compute(series(100000, 100000, 100000, 100000), analysis.DefaultRiskFreeRate)
	assert.Equal(t, 0.0, m.TotalReturn)
	assert.Equal(t, 0.0, m.Volatility)
	// Sharpe is undefined without volatility; it stays zero.
	assert.Equal(t, 0.0, m.Sharpe)
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestCompute_MaxDrawdown(t *testing.T) {
	m := analysis.Compute(series(100, 120, 90, 110), analysis.DefaultRiskFreeRate)
	// Peak 120 to trough 90: 25% drawdown.
	assert.InDelta(t, 0.25, m.MaxDrawdown, 0.0001)
}

func TestCompute_NegativeReturnHasNegativeSharpe(t *testing.T) {
	m := analysis.Compute(series(100000, 98000, 95000, 94000), analysis.DefaultRiskFreeRate)
	assert.Less(t, m.TotalReturn, 0.0)
	assert.Greater(t, m.Volatility, 0.0)
	assert.Less(t, m.Sharpe, 0.0)
	assert.InDelta(t, 0.06, m.MaxDrawdown, 0.0001)
}
