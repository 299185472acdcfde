package ports

import (
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// DataProxy resolves reference data and market data for the simulation.
// Implementations are read-only and safe to call throughout a run.
type DataProxy interface {
	// Instrument returns the reference data for an id.
	Instrument(id string) (domain.Instrument, bool)

	// Bars returns the bar snapshot for one bar timestamp. Instruments
	// with no usable data must appear with BarError status (or be absent,
	// which the matcher treats the same way).
	Bars(dt time.Time) domain.BarDict

	// DividendByBookDate returns the dividend whose book closure (record)
	// date falls on the given trading date, if any.
	DividendByBookDate(id string, date time.Time) (domain.Dividend, bool)

	// Split returns the split ratio effective on the given trading date,
	// as from→to coefficients (e.g. 1→2 doubles the share count).
	Split(id string, date time.Time) (from, to float64, ok bool)
}
