package engine

import (
	"time"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
)

// Context is the simulation execution context: configuration, the event
// bus, data access and the current simulation clocks. It is built once
// per run and passed explicitly to every component — there is no global
// ambient state.
type Context struct {
	Config   *config.Config
	Bus      *EventBus
	Data     ports.DataProxy
	Calendar ports.Calendar

	calendarDT time.Time
	tradingDT  time.Time
	bars       domain.BarDict
}

// NewContext wires a context for one run.
func NewContext(cfg *config.Config, data ports.DataProxy, cal ports.Calendar) *Context {
	return &Context{
		Config:   cfg,
		Bus:      NewEventBus(),
		Data:     data,
		Calendar: cal,
	}
}

// TradingDT is the current trading day.
func (c *Context) TradingDT() time.Time { return c.tradingDT }

// CalendarDT is the wall-clock timestamp of the current bar.
func (c *Context) CalendarDT() time.Time { return c.calendarDT }

// CurrentBars is the bar snapshot for the current bar period. Read-only
// for the duration of a match pass.
func (c *Context) CurrentBars() domain.BarDict { return c.bars }

func (c *Context) setTradingDay(day time.Time) {
	c.tradingDT = day
	c.calendarDT = day
}

func (c *Context) setBarTime(dt time.Time, bars domain.BarDict) {
	c.calendarDT = dt
	c.bars = bars
}
