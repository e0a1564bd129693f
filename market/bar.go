package market

import "time"

// Bar represents one daily OHLCV (Open, High, Low, Close, Volume) bar.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Day truncates a timestamp to its UTC calendar day. All bar dates and
// trading-day comparisons go through this so day boundaries are unambiguous.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
