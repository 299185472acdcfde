package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolio_ValueIncludesFrozenCash(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	pf := NewPortfolio(100000, start)
	pf.Cash = 95000
	pf.FrozenCash = 5000

	// Frozen cash is reserved, not spent: total worth must not change.
	assert.InDelta(t, 100000.0, pf.PortfolioValue(), 0.001)

	pos := pf.Position(Instrument{ID: "000001.XSHE", Type: InstrumentStock})
	pos.MarketValue = 2000
	pf.DividendReceivable = 50
	assert.InDelta(t, 102050.0, pf.PortfolioValue(), 0.001)
}

func TestPortfolio_PositionGetOrCreate(t *testing.T) {
	pf := NewPortfolio(100000, time.Now())
	ins := Instrument{ID: "000001.XSHE", Type: InstrumentStock, RoundLot: 100}

	p1 := pf.Position(ins)
	p2 := pf.Position(ins)
	require.Same(t, p1, p2)
	assert.Equal(t, "000001.XSHE", p1.Instrument.ID)
}

func TestPortfolio_Snapshot(t *testing.T) {
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	pf := NewPortfolio(100000, date)
	pf.Cash = 90000
	pf.FrozenCash = 1000
	pf.TotalCommission = 12.5
	pos := pf.Position(Instrument{ID: "000001.XSHE"})
	pos.MarketValue = 9000

	d := pf.Snapshot(date)
	assert.Equal(t, date, d.Date)
	assert.InDelta(t, 90000.0, d.Cash, 0.001)
	assert.InDelta(t, 9000.0, d.MarketValue, 0.001)
	assert.InDelta(t, 100000.0, d.PortfolioValue, 0.001)
	assert.InDelta(t, 12.5, d.TotalCommission, 0.001)
}

func TestDividend_PerShare(t *testing.T) {
	d := Dividend{CashBeforeTax: 3.5, RoundLot: 10}
	assert.InDelta(t, 0.35, d.PerShare(), 0.0001)

	// Zero round lot falls back to per-share semantics.
	d.RoundLot = 0
	assert.InDelta(t, 3.5, d.PerShare(), 0.0001)
}

func TestComputeBarStatus(t *testing.T) {
	assert.Equal(t, BarOK, ComputeBarStatus(10, 11, 9))
	assert.Equal(t, BarLimitUp, ComputeBarStatus(11, 11, 9))
	assert.Equal(t, BarLimitDown, ComputeBarStatus(9, 11, 9))
	assert.Equal(t, BarError, ComputeBarStatus(math.NaN(), 11, 9))
	// No price bands, no lock.
	assert.Equal(t, BarOK, ComputeBarStatus(10, 0, 0))
}
