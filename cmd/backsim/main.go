package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/adapters/marketdata"
	"github.com/alejandrodnm/backsim/internal/adapters/notify"
	"github.com/alejandrodnm/backsim/internal/adapters/storage"
	"github.com/alejandrodnm/backsim/internal/application/engine"
	"github.com/alejandrodnm/backsim/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	instrumentsPath := flag.String("instruments", "", "instrument reference data CSV")
	barsPath := flag.String("bars", "", "daily bars CSV")
	holdings := flag.String("buy", "", "comma-separated instrument ids for the built-in buy-and-hold strategy")
	noLedger := flag.Bool("no-ledger", false, "skip SQLite persistence")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("backsim starting",
		"config", *configPath,
		"start", cfg.Base.StartDate,
		"end", cfg.Base.EndDate,
		"matching", cfg.Base.MatchingType,
		"frequency", cfg.Base.Frequency,
		"accounts", cfg.Base.AccountList,
	)

	if *instrumentsPath == "" || *barsPath == "" {
		slog.Error("both -instruments and -bars CSV files are required")
		os.Exit(1)
	}

	feed := marketdata.NewMemory()
	if err := feed.LoadInstrumentsCSV(*instrumentsPath); err != nil {
		slog.Error("failed to load instruments", "err", err)
		os.Exit(1)
	}
	if err := feed.LoadCSV(*barsPath); err != nil {
		slog.Error("failed to load bars", "err", err)
		os.Exit(1)
	}

	deps := engine.Deps{
		Data:     feed,
		Calendar: feed,
		Notifier: notify.NewConsole(*verbose),
	}

	if !*noLedger {
		ledger, err := storage.NewSQLiteLedger(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer ledger.Close()
		deps.Ledger = ledger
	}

	strategy := &buyAndHold{ids: splitIDs(*holdings)}
	if len(strategy.ids) == 0 {
		slog.Error("no instruments to trade: pass -buy id1,id2")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := engine.Run(ctx, cfg, strategy, deps)
	if err != nil {
		slog.Error("simulation failed", "err", err)
		os.Exit(1)
	}

	slog.Info("backsim finished",
		"trading_days", result.Metrics.TradingDays,
		"orders", len(result.Orders),
		"trades", len(result.Trades),
		"total_return", fmt.Sprintf("%.2f%%", result.Metrics.TotalReturn*100),
	)
}

// buyAndHold spends the available cash evenly across the instruments on
// the first bar that carries data for them, then holds.
type buyAndHold struct {
	ids    []string
	bought map[string]bool
}

func (s *buyAndHold) Init(*engine.Trader) error {
	s.bought = make(map[string]bool)
	return nil
}

func (s *buyAndHold) BeforeTrading(*engine.Trader) error { return nil }
func (s *buyAndHold) AfterTrading(*engine.Trader) error  { return nil }

func (s *buyAndHold) HandleBar(t *engine.Trader, bars domain.BarDict) error {
	remaining := 0
	for _, id := range s.ids {
		if !s.bought[id] {
			remaining++
		}
	}
	if remaining == 0 {
		return nil
	}

	for _, id := range s.ids {
		if s.bought[id] {
			continue
		}
		bar, ok := bars[id]
		if !ok || bar.IsNaN || bar.Close <= 0 {
			continue
		}
		account, err := t.AccountFor(id)
		if err != nil {
			return err
		}
		budget := account.Portfolio().Cash / float64(remaining)
		qty := int64(budget / bar.Close)
		if qty <= 0 {
			s.bought[id] = true
			remaining--
			continue
		}
		order, err := t.OrderShares(id, qty)
		if err != nil {
			return err
		}
		slog.Debug("buy-and-hold order placed",
			"instrument", id, "quantity", order.Quantity, "status", string(order.Status))
		s.bought[id] = true
		remaining--
	}
	return nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
