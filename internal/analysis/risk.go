// Package analysis computes risk metrics over a run's daily portfolio
// series.
package analysis

import (
	"math"

	"github.com/alejandrodnm/backsim/internal/domain"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultRiskFreeRate is the annual risk-free rate used for Sharpe.
	DefaultRiskFreeRate = 0.03

	// tradingDaysPerYear annualizes daily figures. A-share calendars run
	// ~244 sessions; 252 is the conventional figure the metrics use.
	tradingDaysPerYear = 252
)

// Compute derives the risk metrics from the combined daily series.
// Fewer than two points yields zero metrics.
func Compute(dailies []domain.DailyValuation, riskFreeRate float64) domain.RiskMetrics {
	m := domain.RiskMetrics{TradingDays: len(dailies)}
	if len(dailies) < 2 {
		return m
	}

	returns := make([]float64, 0, len(dailies)-1)
	for i := 1; i < len(dailies); i++ {
		prev := dailies[i-1].PortfolioValue
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, dailies[i].PortfolioValue/prev-1)
	}

	first := dailies[0].PortfolioValue
	last := dailies[len(dailies)-1].PortfolioValue
	if first != 0 {
		m.TotalReturn = last/first - 1
	}

	years := float64(len(dailies)) / tradingDaysPerYear
	if years > 0 && 1+m.TotalReturn > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, 1/years) - 1
	}

	dailyVol := stat.StdDev(returns, nil)
	m.Volatility = dailyVol * math.Sqrt(tradingDaysPerYear)

	if m.Volatility > 0 {
		m.Sharpe = (m.AnnualizedReturn - riskFreeRate) / m.Volatility
	}

	m.MaxDrawdown = maxDrawdown(dailies)
	return m
}

// maxDrawdown is the largest peak-to-trough loss as a positive fraction.
func maxDrawdown(dailies []domain.DailyValuation) float64 {
	var peak, maxDD float64
	for _, d := range dailies {
		if d.PortfolioValue > peak {
			peak = d.PortfolioValue
		}
		if peak > 0 {
			dd := 1 - d.PortfolioValue/peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
