package market

import (
	"fmt"
	"sort"
	"time"
)

// Series holds the daily bars for a single symbol, ascending by date.
type Series struct {
	Symbol string
	Bars   []Bar
}

// NewSeries validates and wraps a bar slice. Bars must be strictly ascending
// by date with no duplicates; anything else points at a broken data load.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("series %s: bar %d (%s) not after bar %d (%s)",
				symbol, i, bars[i].Date.Format("2006-01-02"),
				i-1, bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return &Series{Symbol: symbol, Bars: bars}, nil
}

// BarsUpTo returns up to lookback bars ending at date (end-inclusive).
// It never returns a bar dated after date; callers rely on that to keep
// simulated decisions free of future data.
func (s *Series) BarsUpTo(date time.Time, lookback int) []Bar {
	d := Day(date)
	// first index with bar date > d
	hi := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Date.After(d)
	})
	lo := hi - lookback
	if lo < 0 {
		lo = 0
	}
	return s.Bars[lo:hi]
}

// BarOn returns the bar for the exact date, if the symbol traded that day.
func (s *Series) BarOn(date time.Time) (Bar, bool) {
	d := Day(date)
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(d)
	})
	if i < len(s.Bars) && s.Bars[i].Date.Equal(d) {
		return s.Bars[i], true
	}
	return Bar{}, false
}

// NextBarAfter returns the first bar strictly after date, used for
// next-open fills during replay.
func (s *Series) NextBarAfter(date time.Time) (Bar, bool) {
	d := Day(date)
	i := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Date.After(d)
	})
	if i < len(s.Bars) {
		return s.Bars[i], true
	}
	return Bar{}, false
}

// Returns computes simple daily close-to-close returns for the trailing
// lookback window ending at date. len(result) == len(window)-1.
func (s *Series) Returns(date time.Time, lookback int) []float64 {
	bars := s.BarsUpTo(date, lookback+1)
	if len(bars) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		rets = append(rets, (bars[i].Close-prev)/prev)
	}
	return rets
}
