package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/backsim/internal/adapters/storage"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDaily(date time.Time, value float64) domain.DailyValuation {
	return domain.DailyValuation{
		Date:            date,
		Cash:            value * 0.1,
		MarketValue:     value * 0.9,
		PortfolioValue:  value,
		TotalCommission: 5,
	}
}

func TestSQLiteLedger_SaveAndGetDailyValuations(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	d1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveDailyValuation(ctx, "STOCK", makeDaily(d1, 100000)))
	require.NoError(t, db.SaveDailyValuation(ctx, "STOCK", makeDaily(d2, 101000)))
	require.NoError(t, db.SaveDailyValuation(ctx, "FUTURE", makeDaily(d1, 50000)))

	series, err := db.GetDailyValuations(ctx, "STOCK")
	require.NoError(t, err)
	require.Len(t, series, 2)
	// Ordenadas por fecha
	assert.Equal(t, d1, series[0].Date)
	assert.InDelta(t, 100000.0, series[0].PortfolioValue, 0.001)
	assert.InDelta(t, 101000.0, series[1].PortfolioValue, 0.001)
}

func TestSQLiteLedger_DailyValuationUpsert(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	d1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveDailyValuation(ctx, "STOCK", makeDaily(d1, 100000)))
	// Re-ejecutar el mismo día sobreescribe, no duplica.
	require.NoError(t, db.SaveDailyValuation(ctx, "STOCK", makeDaily(d1, 99000)))

	series, err := db.GetDailyValuations(ctx, "STOCK")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.InDelta(t, 99000.0, series[0].PortfolioValue, 0.001)
}

func TestSQLiteLedger_SaveOrderUpsertsStatus(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Date(2024, 3, 4, 9, 31, 0, 0, time.UTC)
	order := domain.NewLimitOrder("000001.XSHE", domain.SideBuy, 500, 10.5, now)
	require.NoError(t, db.SaveOrder(ctx, *order))

	order.Activate()
	order.Fill(500)
	require.NoError(t, db.SaveOrder(ctx, *order))

	trades, err := db.GetTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSQLiteLedger_SaveAndGetTrades(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	dt := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	first := domain.TradeRecord{
		ExecID: "exec-1", OrderID: "order-1", InstrumentID: "000001.XSHE",
		Side: domain.SideBuy, Price: 10.2, Amount: 200, Commission: 5, TradingDT: dt,
	}
	second := domain.TradeRecord{
		ExecID: "exec-2", OrderID: "order-2", InstrumentID: "000001.XSHE",
		Side: domain.SideSell, Price: 10.4, Amount: 200, Commission: 5, Tax: 2.08,
		TradingDT: dt.AddDate(0, 0, 1),
	}
	require.NoError(t, db.SaveTrade(ctx, second))
	require.NoError(t, db.SaveTrade(ctx, first))
	// Guardar dos veces el mismo fill es un no-op.
	require.NoError(t, db.SaveTrade(ctx, first))

	trades, err := db.GetTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "exec-1", trades[0].ExecID)
	assert.Equal(t, domain.SideBuy, trades[0].Side)
	assert.InDelta(t, 10.2, trades[0].Price, 0.001)
	assert.Equal(t, "exec-2", trades[1].ExecID)
	assert.InDelta(t, 2.08, trades[1].Tax, 0.001)
}
