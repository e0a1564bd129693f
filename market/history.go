package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"
)

// History is the multi-symbol price store replay and the live trackers read
// from. Symbols map to their daily Series.
type History struct {
	series map[string]*Series
}

func NewHistory() *History {
	return &History{series: make(map[string]*Series)}
}

func (h *History) Add(s *Series) { h.series[s.Symbol] = s }

func (h *History) Series(symbol string) (*Series, bool) {
	s, ok := h.series[symbol]
	return s, ok
}

// Symbols returns all symbols in sorted order. Map iteration order must not
// leak into replay, so every consumer goes through this.
func (h *History) Symbols() []string {
	syms := make([]string, 0, len(h.series))
	for s := range h.series {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// BarsUpTo is the price-history provider contract: ascending daily bars for
// symbol, end-inclusive at date, never containing anything after date.
func (h *History) BarsUpTo(symbol string, date time.Time, lookback int) []Bar {
	s, ok := h.series[symbol]
	if !ok {
		return nil
	}
	return s.BarsUpTo(date, lookback)
}

// TradingDays returns the sorted union of all bar dates in [start, end].
// This is the calendar the replay engine walks.
func (h *History) TradingDays(start, end time.Time) []time.Time {
	s, e := Day(start), Day(end)
	seen := make(map[time.Time]struct{})
	for _, ser := range h.series {
		for _, b := range ser.Bars {
			if b.Date.Before(s) || b.Date.After(e) {
				continue
			}
			seen[b.Date] = struct{}{}
		}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// LoadCSV reads daily bars for one symbol from a CSV file with the layout
//
//	date,open,high,low,close,volume
//
// date is YYYY-MM-DD. A header row is detected and skipped. Rows out of
// order fail the load rather than being silently resorted.
func LoadCSV(symbol, path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load bars %s: %w", symbol, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var bars []Bar
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load bars %s: line %d: %w", symbol, line+1, err)
		}
		line++
		if line == 1 {
			if _, err := time.Parse("2006-01-02", rec[0]); err != nil {
				continue // header
			}
		}
		b, err := parseBarRow(rec)
		if err != nil {
			return nil, fmt.Errorf("load bars %s: line %d: %w", symbol, line, err)
		}
		bars = append(bars, b)
	}

	return NewSeries(symbol, bars)
}

func parseBarRow(rec []string) (Bar, error) {
	d, err := time.Parse("2006-01-02", rec[0])
	if err != nil {
		return Bar{}, fmt.Errorf("bad date %q: %w", rec[0], err)
	}
	vals := make([]float64, 5)
	for i, field := range rec[1:6] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad field %q: %w", field, err)
		}
		vals[i] = v
	}
	return Bar{
		Date:   Day(d),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
