package market

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SectorMap maps symbols to sector names. A missing entry means the sector
// is unknown, which downgrades the sector-exposure check to a skip for that
// symbol rather than a rejection.
type SectorMap interface {
	Lookup(symbol string) (sector string, ok bool)
}

// StaticSectorMap is the file-backed SectorMap used by both replay and live
// mode. It is loaded once and never mutated.
type StaticSectorMap map[string]string

func (m StaticSectorMap) Lookup(symbol string) (string, bool) {
	s, ok := m[symbol]
	return s, ok
}

// LoadSectorMap reads a flat symbol: sector YAML mapping.
func LoadSectorMap(path string) (StaticSectorMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load sector map: %w", err)
	}
	m := StaticSectorMap{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse sector map: %w", err)
	}
	return m, nil
}
