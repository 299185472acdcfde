package domain

import "time"

// InstrumentType classifies a tradable symbol by asset class.
type InstrumentType string

const (
	InstrumentStock  InstrumentType = "CS"
	InstrumentIndex  InstrumentType = "INDX"
	InstrumentFuture InstrumentType = "FUT"
)

// Instrument is immutable reference data for one symbol.
// A zero DeListedDate means "not set".
type Instrument struct {
	ID           string
	Type         InstrumentType
	Symbol       string
	ListedDate   time.Time
	DeListedDate time.Time
	RoundLot     int64
	Exchange     string

	// Futures only.
	ContractMultiplier float64
	MarginRate         float64
}

// Multiplier returns the contract multiplier, defaulting to 1 for
// equities and indexes.
func (i Instrument) Multiplier() float64 {
	if i.ContractMultiplier <= 0 {
		return 1
	}
	return i.ContractMultiplier
}

// Lot returns the round lot, never less than 1.
func (i Instrument) Lot() int64 {
	if i.RoundLot < 1 {
		return 1
	}
	return i.RoundLot
}

// DelistedOnOrBefore reports whether the instrument is delisted as of
// the given trading date.
func (i Instrument) DelistedOnOrBefore(date time.Time) bool {
	if i.DeListedDate.IsZero() {
		return false
	}
	return !i.DeListedDate.After(date)
}

// ListedOn reports whether the instrument first listed on the given date.
func (i Instrument) ListedOn(date time.Time) bool {
	return !i.ListedDate.IsZero() && sameDate(i.ListedDate, date)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
