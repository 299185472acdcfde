package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// LoadCSV feeds daily bars from a CSV file into the memory feed.
// Expected header:
//
//	instrument_id,date,open,high,low,close,volume,limit_up,limit_down
//
// Instruments referenced by the file must already be registered.
func (m *Memory) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("marketdata.LoadCSV: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("marketdata.LoadCSV: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"instrument_id", "date", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("marketdata.LoadCSV: missing column %q", required)
		}
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("marketdata.LoadCSV: line %d: %w", line, err)
		}
		line++

		id := record[col["instrument_id"]]
		ins, ok := m.instruments[id]
		if !ok {
			return fmt.Errorf("marketdata.LoadCSV: line %d: unknown instrument %q", line, id)
		}
		dt, err := time.Parse("2006-01-02", record[col["date"]])
		if err != nil {
			return fmt.Errorf("marketdata.LoadCSV: line %d: parse date: %w", line, err)
		}

		bar := domain.Bar{Instrument: ins}
		if bar.Open, err = field(record, col, "open"); err != nil {
			return fmt.Errorf("marketdata.LoadCSV: line %d: %w", line, err)
		}
		if bar.High, err = field(record, col, "high"); err != nil {
			return fmt.Errorf("marketdata.LoadCSV: line %d: %w", line, err)
		}
		if bar.Low, err = field(record, col, "low"); err != nil {
			return fmt.Errorf("marketdata.LoadCSV: line %d: %w", line, err)
		}
		if bar.Close, err = field(record, col, "close"); err != nil {
			return fmt.Errorf("marketdata.LoadCSV: line %d: %w", line, err)
		}
		if bar.Volume, err = field(record, col, "volume"); err != nil {
			return fmt.Errorf("marketdata.LoadCSV: line %d: %w", line, err)
		}
		if i, ok := col["limit_up"]; ok && record[i] != "" {
			if bar.LimitUp, err = strconv.ParseFloat(record[i], 64); err != nil {
				return fmt.Errorf("marketdata.LoadCSV: line %d: parse limit_up: %w", line, err)
			}
		}
		if i, ok := col["limit_down"]; ok && record[i] != "" {
			if bar.LimitDown, err = strconv.ParseFloat(record[i], 64); err != nil {
				return fmt.Errorf("marketdata.LoadCSV: line %d: parse limit_down: %w", line, err)
			}
		}
		m.AddBar(dt, bar)
	}
}

// LoadInstrumentsCSV feeds reference data from a CSV file. Expected header:
//
//	instrument_id,type,symbol,listed_date,delisted_date,round_lot,exchange,contract_multiplier,margin_rate
//
// Optional columns may be left empty per row.
func (m *Memory) LoadInstrumentsCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("marketdata.LoadInstrumentsCSV: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("marketdata.LoadInstrumentsCSV: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"instrument_id", "type"} {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("marketdata.LoadInstrumentsCSV: missing column %q", required)
		}
	}

	get := func(record []string, name string) string {
		if i, ok := col[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("marketdata.LoadInstrumentsCSV: line %d: %w", line, err)
		}
		line++

		ins := domain.Instrument{
			ID:       record[col["instrument_id"]],
			Type:     domain.InstrumentType(record[col["type"]]),
			Symbol:   get(record, "symbol"),
			Exchange: get(record, "exchange"),
			RoundLot: 1,
		}
		if v := get(record, "listed_date"); v != "" {
			if ins.ListedDate, err = time.Parse("2006-01-02", v); err != nil {
				return fmt.Errorf("marketdata.LoadInstrumentsCSV: line %d: parse listed_date: %w", line, err)
			}
		}
		if v := get(record, "delisted_date"); v != "" {
			if ins.DeListedDate, err = time.Parse("2006-01-02", v); err != nil {
				return fmt.Errorf("marketdata.LoadInstrumentsCSV: line %d: parse delisted_date: %w", line, err)
			}
		}
		if v := get(record, "round_lot"); v != "" {
			if ins.RoundLot, err = strconv.ParseInt(v, 10, 64); err != nil {
				return fmt.Errorf("marketdata.LoadInstrumentsCSV: line %d: parse round_lot: %w", line, err)
			}
		}
		if v := get(record, "contract_multiplier"); v != "" {
			if ins.ContractMultiplier, err = strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("marketdata.LoadInstrumentsCSV: line %d: parse contract_multiplier: %w", line, err)
			}
		}
		if v := get(record, "margin_rate"); v != "" {
			if ins.MarginRate, err = strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("marketdata.LoadInstrumentsCSV: line %d: parse margin_rate: %w", line, err)
			}
		}
		m.AddInstrument(ins)
	}
}

func field(record []string, col map[string]int, name string) (float64, error) {
	v, err := strconv.ParseFloat(record[col[name]], 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}
