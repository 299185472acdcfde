package domain

import "time"

// Dividend is one pending cash-dividend entry. It is created at
// settlement of the ex-dividend date with the position quantity frozen
// at record time, and consumed at before-trading of the payable date.
type Dividend struct {
	InstrumentID    string
	Quantity        int64 // position quantity at record time
	BookClosureDate time.Time
	ExDividendDate  time.Time
	PayableDate     time.Time
	CashBeforeTax   float64 // per round lot
	RoundLot        int64
}

// PerShare is the cash amount per single share.
func (d Dividend) PerShare() float64 {
	if d.RoundLot <= 0 {
		return d.CashBeforeTax
	}
	return d.CashBeforeTax / float64(d.RoundLot)
}

// PayableOn reports whether the dividend pays out on the given date.
func (d Dividend) PayableOn(date time.Time) bool {
	return sameDate(d.PayableDate, date)
}
