package ports

import (
	"context"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// LedgerStorage persists the run output: daily valuations per account
// plus the order and trade ledger.
type LedgerStorage interface {
	SaveDailyValuation(ctx context.Context, accountType string, d domain.DailyValuation) error
	SaveOrder(ctx context.Context, o domain.Order) error
	SaveTrade(ctx context.Context, t domain.TradeRecord) error

	GetDailyValuations(ctx context.Context, accountType string) ([]domain.DailyValuation, error)
	GetTrades(ctx context.Context) ([]domain.TradeRecord, error)

	Close() error
}
