package storage

// sqlite.go — ledger de la simulación.
//
// Estrategia:
//   - `daily_valuations`: una fila por (cuenta, fecha). UPSERT para que
//     re-ejecutar una simulación sobre la misma DB no duplique filas.
//   - `orders` / `trades`: el registro completo de órdenes y fills.
//   - SQLite single-writer: MaxOpenConns(1).

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_valuations (
    account_type        TEXT     NOT NULL,
    date                DATETIME NOT NULL,
    cash                REAL     NOT NULL DEFAULT 0,
    frozen_cash         REAL     NOT NULL DEFAULT 0,
    market_value        REAL     NOT NULL DEFAULT 0,
    dividend_receivable REAL     NOT NULL DEFAULT 0,
    portfolio_value     REAL     NOT NULL DEFAULT 0,
    total_commission    REAL     NOT NULL DEFAULT 0,
    total_tax           REAL     NOT NULL DEFAULT 0,
    PRIMARY KEY (account_type, date)
);

CREATE TABLE IF NOT EXISTS orders (
    id              TEXT PRIMARY KEY,
    instrument_id   TEXT    NOT NULL,
    side            TEXT    NOT NULL,
    type            TEXT    NOT NULL,
    price           REAL    NOT NULL DEFAULT 0,
    quantity        INTEGER NOT NULL DEFAULT 0,
    filled_quantity INTEGER NOT NULL DEFAULT 0,
    status          TEXT    NOT NULL,
    reason          TEXT,
    created_at      DATETIME
);

CREATE TABLE IF NOT EXISTS trades (
    exec_id       TEXT PRIMARY KEY,
    order_id      TEXT    NOT NULL,
    instrument_id TEXT    NOT NULL,
    side          TEXT    NOT NULL,
    price         REAL    NOT NULL DEFAULT 0,
    amount        INTEGER NOT NULL DEFAULT 0,
    commission    REAL    NOT NULL DEFAULT 0,
    tax           REAL    NOT NULL DEFAULT 0,
    trading_dt    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_daily_date  ON daily_valuations(date);
CREATE INDEX IF NOT EXISTS idx_orders_ins  ON orders(instrument_id);
CREATE INDEX IF NOT EXISTS idx_trades_ins  ON trades(instrument_id);
`

// SQLiteLedger implementa ports.LedgerStorage usando SQLite (pure Go, sin CGo).
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger abre (o crea) la base de datos y aplica el schema.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// SaveDailyValuation persiste (o actualiza) la valoración de un día.
func (s *SQLiteLedger) SaveDailyValuation(ctx context.Context, accountType string, d domain.DailyValuation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_valuations
			(account_type, date, cash, frozen_cash, market_value,
			 dividend_receivable, portfolio_value, total_commission, total_tax)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_type, date) DO UPDATE SET
			cash                = excluded.cash,
			frozen_cash         = excluded.frozen_cash,
			market_value        = excluded.market_value,
			dividend_receivable = excluded.dividend_receivable,
			portfolio_value     = excluded.portfolio_value,
			total_commission    = excluded.total_commission,
			total_tax           = excluded.total_tax`,
		accountType, d.Date.UTC(), d.Cash, d.FrozenCash, d.MarketValue,
		d.DividendReceivable, d.PortfolioValue, d.TotalCommission, d.TotalTax,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveDailyValuation: %w", err)
	}
	return nil
}

// SaveOrder hace upsert de una orden (el estado final sobreescribe).
func (s *SQLiteLedger) SaveOrder(ctx context.Context, o domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
			(id, instrument_id, side, type, price, quantity, filled_quantity, status, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filled_quantity = excluded.filled_quantity,
			status          = excluded.status,
			reason          = excluded.reason`,
		o.ID, o.InstrumentID, string(o.Side), string(o.Type), o.Price,
		o.Quantity, o.FilledQuantity, string(o.Status), o.RejectionReason, o.CreationTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOrder: %w", err)
	}
	return nil
}

// SaveTrade persiste un fill.
func (s *SQLiteLedger) SaveTrade(ctx context.Context, t domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(exec_id, order_id, instrument_id, side, price, amount, commission, tax, trading_dt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exec_id) DO NOTHING`,
		t.ExecID, t.OrderID, t.InstrumentID, string(t.Side), t.Price,
		t.Amount, t.Commission, t.Tax, t.TradingDT.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: %w", err)
	}
	return nil
}

// GetDailyValuations devuelve la serie diaria de una cuenta, ordenada por fecha.
func (s *SQLiteLedger) GetDailyValuations(ctx context.Context, accountType string) ([]domain.DailyValuation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, cash, frozen_cash, market_value, dividend_receivable,
		       portfolio_value, total_commission, total_tax
		FROM daily_valuations
		WHERE account_type = ?
		ORDER BY date ASC`, accountType)
	if err != nil {
		return nil, fmt.Errorf("storage.GetDailyValuations: %w", err)
	}
	defer rows.Close()

	var series []domain.DailyValuation
	for rows.Next() {
		var d domain.DailyValuation
		var date time.Time
		if err := rows.Scan(&date, &d.Cash, &d.FrozenCash, &d.MarketValue,
			&d.DividendReceivable, &d.PortfolioValue, &d.TotalCommission, &d.TotalTax); err != nil {
			return nil, fmt.Errorf("storage.GetDailyValuations: scan: %w", err)
		}
		d.Date = date.UTC()
		series = append(series, d)
	}
	return series, rows.Err()
}

// GetTrades devuelve el registro completo de fills, ordenado por fecha.
func (s *SQLiteLedger) GetTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT exec_id, order_id, instrument_id, side, price, amount, commission, tax, trading_dt
		FROM trades
		ORDER BY trading_dt ASC, exec_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var side string
		var dt time.Time
		if err := rows.Scan(&t.ExecID, &t.OrderID, &t.InstrumentID, &side,
			&t.Price, &t.Amount, &t.Commission, &t.Tax, &dt); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan: %w", err)
		}
		t.Side = domain.Side(side)
		t.TradingDT = dt.UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close cierra la base de datos.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
