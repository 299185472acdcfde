package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/backsim/config"
	"golang.org/x/time/rate"
)

// Driver iterates the trading calendar and emits the lifecycle events
// for each day. It owns no financial state; all state lives in the
// accounts, reached through the bus.
type Driver struct {
	ctx      *Context
	broker   *Broker
	progress *rate.Limiter
}

// NewDriver creates the day-loop driver.
func NewDriver(ctx *Context, broker *Broker) *Driver {
	return &Driver{
		ctx:    ctx,
		broker: broker,
		// Throttle per-bar progress logging so minute and tick runs
		// stay readable.
		progress: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Run advances the simulation over [start, end]. For each trading day:
// BEFORE_TRADING, one BAR (or TICK) per bar timestamp, AFTER_TRADING,
// SETTLEMENT. Handler errors abort with context.
func (d *Driver) Run(goCtx context.Context, start, end time.Time) error {
	bus := d.ctx.Bus
	tickMode := d.ctx.Config.Base.Frequency == config.FrequencyTick

	days := d.ctx.Calendar.TradingDays(start, end)
	if len(days) == 0 {
		return fmt.Errorf("engine: no trading days between %s and %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	for i, day := range days {
		if err := goCtx.Err(); err != nil {
			return fmt.Errorf("engine: run interrupted on %s: %w", day.Format("2006-01-02"), err)
		}

		d.ctx.setTradingDay(day)
		if err := bus.Publish(Event{Type: EventBeforeTrading}); err != nil {
			return d.dayErr(day, "before_trading", err)
		}

		for _, barTime := range d.ctx.Calendar.BarTimes(day) {
			bars := d.ctx.Data.Bars(barTime)
			d.ctx.setBarTime(barTime, bars)
			eventType := EventBar
			if tickMode {
				eventType = EventTick
			}
			if err := bus.Publish(Event{Type: eventType, Bars: bars}); err != nil {
				return d.dayErr(day, "bar", err)
			}
			if d.progress.Allow() {
				slog.Info("simulation progress",
					"trading_dt", barTime.Format("2006-01-02 15:04"),
					"day", i+1, "days", len(days))
			}
		}

		if err := bus.Publish(Event{Type: EventAfterTrading}); err != nil {
			return d.dayErr(day, "after_trading", err)
		}
		if err := bus.Publish(Event{Type: EventSettlement}); err != nil {
			return d.dayErr(day, "settlement", err)
		}

		if err := d.checkInvariants(day); err != nil {
			return err
		}

		slog.Debug("simulated trading day", "date", day.Format("2006-01-02"))
	}
	return nil
}

// checkInvariants aborts on unrecoverable state: negative cash on a
// trading account with shorting disabled.
func (d *Driver) checkInvariants(day time.Time) error {
	for _, typ := range []string{config.AccountStock, config.AccountFuture} {
		account, ok := d.broker.Accounts()[typ]
		if !ok {
			continue
		}
		if cash := account.Portfolio().Cash; cash < -1e-6 {
			return fmt.Errorf("engine: %s account cash went negative (%.2f) on %s",
				typ, cash, day.Format("2006-01-02"))
		}
		if frozen := account.Portfolio().FrozenCash; frozen < -1e-6 {
			return fmt.Errorf("engine: %s account frozen cash went negative (%.2f) on %s",
				typ, frozen, day.Format("2006-01-02"))
		}
	}
	return nil
}

func (d *Driver) dayErr(day time.Time, phase string, err error) error {
	return fmt.Errorf("engine: %s on %s: %w", phase, day.Format("2006-01-02"), err)
}
