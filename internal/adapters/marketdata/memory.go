// Package marketdata provides an in-memory DataProxy and Calendar fed
// from fixtures or CSV files.
package marketdata

import (
	"sort"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// Memory implements ports.DataProxy and ports.Calendar over in-memory
// maps. It is the test fixture feed and the backing store for the CSV
// loader.
type Memory struct {
	instruments map[string]domain.Instrument
	bars        map[time.Time]domain.BarDict
	dividends   map[string][]domain.Dividend // keyed by instrument
	splits      map[string]map[time.Time][2]float64
	barTimes    []time.Time
}

// NewMemory creates an empty feed.
func NewMemory() *Memory {
	return &Memory{
		instruments: make(map[string]domain.Instrument),
		bars:        make(map[time.Time]domain.BarDict),
		dividends:   make(map[string][]domain.Dividend),
		splits:      make(map[string]map[time.Time][2]float64),
	}
}

// AddInstrument registers reference data.
func (m *Memory) AddInstrument(ins domain.Instrument) {
	m.instruments[ins.ID] = ins
}

// AddBar registers one bar at its timestamp. The bar's instrument must
// have been added before; its reference data is attached automatically.
func (m *Memory) AddBar(dt time.Time, bar domain.Bar) {
	if ins, ok := m.instruments[bar.Instrument.ID]; ok {
		bar.Instrument = ins
	}
	bar.Datetime = dt
	if bar.Status == "" {
		bar.Status = domain.ComputeBarStatus(bar.Close, bar.LimitUp, bar.LimitDown)
	}
	dict, ok := m.bars[dt]
	if !ok {
		dict = make(domain.BarDict)
		m.bars[dt] = dict
		m.barTimes = append(m.barTimes, dt)
		sort.Slice(m.barTimes, func(i, j int) bool { return m.barTimes[i].Before(m.barTimes[j]) })
	}
	dict[bar.Instrument.ID] = bar
}

// AddDividend registers a dividend series entry for the instrument.
func (m *Memory) AddDividend(div domain.Dividend) {
	m.dividends[div.InstrumentID] = append(m.dividends[div.InstrumentID], div)
}

// AddSplit registers a split effective on the given date.
func (m *Memory) AddSplit(instrumentID string, date time.Time, from, to float64) {
	if m.splits[instrumentID] == nil {
		m.splits[instrumentID] = make(map[time.Time][2]float64)
	}
	m.splits[instrumentID][dateOnly(date)] = [2]float64{from, to}
}

// Instrument implements ports.DataProxy.
func (m *Memory) Instrument(id string) (domain.Instrument, bool) {
	ins, ok := m.instruments[id]
	return ins, ok
}

// Bars implements ports.DataProxy. Instruments with no data at dt are
// absent from the snapshot; the matcher treats absence as BarError.
func (m *Memory) Bars(dt time.Time) domain.BarDict {
	if dict, ok := m.bars[dt]; ok {
		return dict
	}
	return domain.BarDict{}
}

// DividendByBookDate implements ports.DataProxy.
func (m *Memory) DividendByBookDate(id string, date time.Time) (domain.Dividend, bool) {
	for _, div := range m.dividends[id] {
		if sameDay(div.BookClosureDate, date) {
			return div, true
		}
	}
	return domain.Dividend{}, false
}

// Split implements ports.DataProxy.
func (m *Memory) Split(id string, date time.Time) (from, to float64, ok bool) {
	ratio, ok := m.splits[id][dateOnly(date)]
	if !ok {
		return 0, 0, false
	}
	return ratio[0], ratio[1], true
}

// TradingDays implements ports.Calendar: the distinct dates carrying
// bars within [start, end].
func (m *Memory) TradingDays(start, end time.Time) []time.Time {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, dt := range m.barTimes {
		day := dateOnly(dt)
		if day.Before(dateOnly(start)) || day.After(dateOnly(end)) || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days
}

// BarTimes implements ports.Calendar.
func (m *Memory) BarTimes(day time.Time) []time.Time {
	var times []time.Time
	for _, dt := range m.barTimes {
		if sameDay(dt, day) {
			times = append(times, dt)
		}
	}
	return times
}

func dateOnly(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return dateOnly(a).Equal(dateOnly(b))
}
