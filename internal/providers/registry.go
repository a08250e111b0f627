package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
)

type OddsFactory func(cfg config.ProviderConfig) (OddsProvider, error)

type ExpertFactory func(cfg config.ProviderConfig) (ExpertProvider, error)

var (
	registryMu     sync.RWMutex
	oddsRegistry   = map[string]OddsFactory{}
	expertRegistry = map[string]ExpertFactory{}
)

func RegisterOdds(kind string, f OddsFactory) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "" {
		panic("providers: empty kind in RegisterOdds")
	}
	if f == nil {
		panic("providers: nil factory in RegisterOdds for " + k)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := oddsRegistry[k]; exists {
		panic("providers: duplicate odds registration for " + k)
	}
	oddsRegistry[k] = f
}

func RegisterExperts(kind string, f ExpertFactory) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "" {
		panic("providers: empty kind in RegisterExperts")
	}
	if f == nil {
		panic("providers: nil factory in RegisterExperts for " + k)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := expertRegistry[k]; exists {
		panic("providers: duplicate expert registration for " + k)
	}
	expertRegistry[k] = f
}

func OddsFactoryByKind(kind string) (OddsFactory, bool) {
	k := strings.ToLower(strings.TrimSpace(kind))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := oddsRegistry[k]
	return f, ok
}

func ExpertFactoryByKind(kind string) (ExpertFactory, bool) {
	k := strings.ToLower(strings.TrimSpace(kind))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := expertRegistry[k]
	return f, ok
}

func AvailableOddsKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(oddsRegistry))
	for k := range oddsRegistry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func AvailableExpertKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(expertRegistry))
	for k := range expertRegistry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BuildOdds constructs one odds provider per configured entry.
func BuildOdds(cfgs []config.ProviderConfig) ([]OddsProvider, error) {
	out := make([]OddsProvider, 0, len(cfgs))
	for _, cfg := range cfgs {
		f, ok := OddsFactoryByKind(cfg.Kind)
		if !ok {
			return nil, fmt.Errorf("unknown odds provider kind %q (available: %v)", cfg.Kind, AvailableOddsKinds())
		}
		p, err := f(cfg)
		if err != nil {
			return nil, fmt.Errorf("build odds provider %q: %w", cfg.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// BuildExperts constructs one expert provider per configured entry.
func BuildExperts(cfgs []config.ProviderConfig) ([]ExpertProvider, error) {
	out := make([]ExpertProvider, 0, len(cfgs))
	for _, cfg := range cfgs {
		f, ok := ExpertFactoryByKind(cfg.Kind)
		if !ok {
			return nil, fmt.Errorf("unknown expert provider kind %q (available: %v)", cfg.Kind, AvailableExpertKinds())
		}
		p, err := f(cfg)
		if err != nil {
			return nil, fmt.Errorf("build expert provider %q: %w", cfg.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
