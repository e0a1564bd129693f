package signal

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	regMu    sync.Mutex
	registry = make(map[string]func() Source)
)

// Register makes a strategy constructor available by name. Later
// registrations with the same name replace earlier ones.
func Register(name string, ctor func() Source) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// ByName builds a registered strategy.
func ByName(name string) (Source, error) {
	regMu.Lock()
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	regMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)",
			name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names lists registered strategies, sorted.
func Names() []string {
	regMu.Lock()
	defer regMu.Unlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("hold", func() Source { return HoldSource{} })
	Register("momentum", func() Source { return &Momentum{Lookback: 5, Threshold: 0.0} })
}
