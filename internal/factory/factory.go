// Package factory maps source names to scraper constructors
package factory

import (
	"sort"

	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/internal/scraper/idealista"
	"github.com/dealmungchi/mirascraper/internal/scraper/spainrealestate"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// Constructor builds a scraper from the shared dependencies
type Constructor func(deps scraper.Deps) scraper.Scraper

var registry = map[string]Constructor{
	idealista.Source: func(deps scraper.Deps) scraper.Scraper {
		return idealista.New(deps)
	},
	spainrealestate.Source: func(deps scraper.Deps) scraper.Scraper {
		return spainrealestate.New(deps)
	},
}

// Names returns the registered source names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a registered source
func Has(name string) bool {
	_, ok := registry[name]
	return ok
}

// New creates the scraper registered under name
func New(name string, deps scraper.Deps) (scraper.Scraper, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.NewUnknownSource(name)
	}
	return ctor(deps), nil
}
