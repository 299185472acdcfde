package domain

import (
	"math"
	"time"
)

// BarStatus marks the tradability of a bar.
type BarStatus string

const (
	BarOK        BarStatus = "OK"
	BarLimitUp   BarStatus = "LIMIT_UP"
	BarLimitDown BarStatus = "LIMIT_DOWN"
	BarError     BarStatus = "ERROR"
)

// Bar is the OHLCV envelope for one instrument on one trading timestamp.
// It is only valid for the bar period it was produced for.
type Bar struct {
	Instrument Instrument
	Datetime   time.Time
	Open       float64
	Close      float64
	High       float64
	Low        float64
	Volume     float64
	LimitUp    float64
	LimitDown  float64
	Status     BarStatus
	IsNaN      bool
}

// BarDict is the per-timestamp snapshot handed to the matcher and the
// accounts. Keys are instrument ids. Read-only for the bar period.
type BarDict map[string]Bar

// ComputeBarStatus derives the status for a bar from its close against
// the daily price bands. NaN prices mean the bar carries no usable data.
func ComputeBarStatus(close, limitUp, limitDown float64) BarStatus {
	if math.IsNaN(close) {
		return BarError
	}
	if limitUp > 0 && close >= limitUp {
		return BarLimitUp
	}
	if limitDown > 0 && close <= limitDown {
		return BarLimitDown
	}
	return BarOK
}
