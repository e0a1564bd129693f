package risk

// Sizer converts signal strength and available capital into a bounded
// trade value. Pure arithmetic: equal inputs always produce equal output,
// which the replay engine depends on.
type Sizer struct{}

// Size maps strength linearly between MinStrength and MaxStrength onto the
// range [MinTradeValue, MaxPositionPct*equity], then clamps to buying
// power. Strength at or below MinStrength yields the minimum tier; at or
// above MaxStrength the full allocation. Monotonic non-decreasing in
// strength.
func (Sizer) Size(strength, buyingPower, equity float64, p Params) float64 {
	maxValue := p.MaxPositionPct * equity
	if maxValue <= 0 {
		return 0
	}

	floor := p.MinTradeValue
	if floor > maxValue {
		floor = maxValue
	}

	frac := 0.0
	if span := p.MaxStrength - p.MinStrength; span > 0 {
		frac = (strength - p.MinStrength) / span
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	value := floor + frac*(maxValue-floor)
	if value > buyingPower {
		value = buyingPower
	}
	if value < 0 {
		value = 0
	}
	return value
}
