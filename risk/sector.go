package risk

import (
	"tradegate/market"
	"tradegate/portfolio"
)

// SectorExposure aggregates portfolio value by sector through an external
// symbol-to-sector mapping.
type SectorExposure struct {
	sectors market.SectorMap
}

func NewSectorExposure(sectors market.SectorMap) *SectorExposure {
	return &SectorExposure{sectors: sectors}
}

// ExposureAfter returns the fraction of post-trade equity that the
// candidate's sector would hold if the trade were admitted. The second
// return is false when the candidate's sector is unknown, in which case
// the check must be skipped, not failed.
func (se *SectorExposure) ExposureAfter(symbol string, candidateValue float64, state *portfolio.State) (float64, bool) {
	sector, ok := se.sectors.Lookup(symbol)
	if !ok {
		return 0, false
	}

	sectorValue := candidateValue
	for _, sym := range state.Symbols() {
		p := state.Positions[sym]
		if p.Sector != sector {
			continue
		}
		sectorValue += state.PositionValue(sym)
	}

	basis := state.CurrentEquity + candidateValue
	if basis <= 0 {
		return 0, false
	}
	return sectorValue / basis, true
}

// Sector resolves the candidate's sector for position bookkeeping.
// Unknown symbols come back as the empty string.
func (se *SectorExposure) Sector(symbol string) string {
	s, _ := se.sectors.Lookup(symbol)
	return s
}
