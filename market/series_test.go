package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradingBars(t *testing.T, start time.Time, closes ...float64) []Bar {
	t.Helper()
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Date:   Day(start.AddDate(0, 0, i)),
			Open:   c - 1,
			High:   c + 1,
			Low:    c - 2,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewSeriesRejectsOutOfOrderBars(t *testing.T) {
	t.Parallel()

	bars := tradingBars(t, seriesStart, 100, 101, 102)
	bars[2].Date = bars[0].Date // duplicate

	_, err := NewSeries("AAA", bars)
	assert.Error(t, err)
}

func TestBarsUpToExcludesFuture(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("AAA", tradingBars(t, seriesStart, 100, 101, 102, 103, 104))
	require.NoError(t, err)

	asOf := seriesStart.AddDate(0, 0, 2)
	got := s.BarsUpTo(asOf, 10)

	require.Len(t, got, 3)
	for _, b := range got {
		assert.False(t, b.Date.After(Day(asOf)), "bar %s is after as-of date", b.Date)
	}
	assert.Equal(t, 102.0, got[len(got)-1].Close)
}

func TestBarsUpToLookbackWindow(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("AAA", tradingBars(t, seriesStart, 100, 101, 102, 103, 104))
	require.NoError(t, err)

	got := s.BarsUpTo(seriesStart.AddDate(0, 0, 4), 2)
	require.Len(t, got, 2)
	assert.Equal(t, 103.0, got[0].Close)
	assert.Equal(t, 104.0, got[1].Close)
}

func TestBarsUpToIgnoresClockTime(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("AAA", tradingBars(t, seriesStart, 100, 101, 102))
	require.NoError(t, err)

	// 23:59 on day 2 still sees day 2's bar.
	asOf := time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC)
	got := s.BarsUpTo(asOf, 10)
	require.Len(t, got, 2)
	assert.Equal(t, 101.0, got[1].Close)
}

func TestNextBarAfter(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("AAA", tradingBars(t, seriesStart, 100, 101, 102))
	require.NoError(t, err)

	b, ok := s.NextBarAfter(seriesStart)
	require.True(t, ok)
	assert.Equal(t, 101.0, b.Close)

	_, ok = s.NextBarAfter(seriesStart.AddDate(0, 0, 2))
	assert.False(t, ok, "no bar after the last one")
}

func TestBarOn(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("AAA", tradingBars(t, seriesStart, 100, 101, 102))
	require.NoError(t, err)

	b, ok := s.BarOn(seriesStart.AddDate(0, 0, 1))
	require.True(t, ok)
	assert.Equal(t, 101.0, b.Close)

	_, ok = s.BarOn(seriesStart.AddDate(0, 0, 30))
	assert.False(t, ok)
}

func TestReturns(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("AAA", tradingBars(t, seriesStart, 100, 110, 99))
	require.NoError(t, err)

	rets := s.Returns(seriesStart.AddDate(0, 0, 2), 2)
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.10, rets[0], 1e-9)
	assert.InDelta(t, -0.10, rets[1], 1e-9)
}
