package engine

import (
	"testing"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func benchmarkEnv() *testEnv {
	cfg := testConfig()
	cfg.Base.Benchmark = testStock.ID
	return newTestEnv(cfg)
}

func TestBenchmarkAccount_SeedsOnFirstUsableBar(t *testing.T) {
	env := benchmarkEnv()
	account := env.broker.Accounts()[config.AccountBenchmark]
	require.NotNil(t, account)

	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		testStock.ID: stockBar(day1, 10, 100000),
	}))

	pf := account.Portfolio()
	pos := pf.Positions[testStock.ID]
	require.NotNil(t, pos)
	assert.Equal(t, int64(10000), pos.Quantity()) // floor(100000 / 10)
	assert.InDelta(t, 100000.0, pf.MarketValue(), 0.001)
	// Commission makes the cash end slightly negative; the invariant check
	// only covers trading accounts.
	assert.InDelta(t, -80.0, pf.Cash, 0.001)
	assert.InDelta(t, 80.0, pf.TotalCommission, 0.001)
}

func TestBenchmarkAccount_OnlyRevaluesAfterSeeding(t *testing.T) {
	env := benchmarkEnv()
	account := env.broker.Accounts()[config.AccountBenchmark]

	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		testStock.ID: stockBar(day1, 10, 100000),
	}))
	require.NoError(t, env.closeDay())

	require.NoError(t, env.openDay(day2))
	require.NoError(t, env.publishBar(day2, domain.BarDict{
		testStock.ID: stockBar(day2, 11, 100000),
	}))

	pf := account.Portfolio()
	pos := pf.Positions[testStock.ID]
	assert.Equal(t, int64(10000), pos.Quantity())
	assert.InDelta(t, 110000.0, pf.MarketValue(), 0.001)
	assert.InDelta(t, -80.0, pf.Cash, 0.001)
}

func TestBenchmarkAccount_PersistsAtAfterTrading(t *testing.T) {
	env := benchmarkEnv()
	account := env.broker.Accounts()[config.AccountBenchmark]

	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{
		testStock.ID: stockBar(day1, 10, 100000),
	}))
	require.NoError(t, env.closeDay())

	dailies := account.Dailies()
	require.Len(t, dailies, 1)
	assert.InDelta(t, 99920.0, dailies[0].PortfolioValue, 0.001) // 100000 - 80 commission
}

func TestBenchmarkAccount_SkipsBarsWithoutData(t *testing.T) {
	env := benchmarkEnv()
	account := env.broker.Accounts()[config.AccountBenchmark]

	require.NoError(t, env.openDay(day1))
	require.NoError(t, env.publishBar(day1, domain.BarDict{}))

	pf := account.Portfolio()
	assert.Empty(t, pf.Positions)
	assert.InDelta(t, 100000.0, pf.Cash, 0.001)
}
