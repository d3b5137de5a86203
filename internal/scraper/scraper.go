// Package scraper defines the contract every source orchestrator fulfils
// and the dependencies they share.
package scraper

import (
	"context"

	"github.com/dealmungchi/mirascraper/internal/model"
)

// Options controls a single scrape run
type Options struct {
	ListingType model.ListingType
	MaxPages    int
	// Enrich fetches every detail page inline while listing
	Enrich bool
	// Tabs restricts the property-type sections, for sources that have them
	Tabs []string
}

// Scraper lists one source and turns its pages into canonical records
type Scraper interface {
	// Name returns the source identifier stored in every record
	Name() string

	// Scrape walks the listing pages and returns the records found.
	// Per-page and per-item failures are logged and skipped. Partial
	// results are returned together with ctx.Err() on cancellation.
	Scrape(ctx context.Context, opts Options) ([]model.Property, error)

	// ParseDetailPage builds a record from a detail page alone
	ParseDetailPage(html, id string, listingType model.ListingType) (model.Property, bool)

	// Close releases the transport session
	Close() error
}

// Enricher is implemented by scrapers that can complete an already
// persisted record from its detail page.
type Enricher interface {
	// EnrichProperty returns a new record built with the detail page data,
	// with Enriched set. When there is nothing to fetch the input comes back
	// unchanged. A failed fetch returns the input together with the error.
	EnrichProperty(ctx context.Context, p model.Property) (model.Property, error)
}

// AsEnricher reports whether s supports the enrichment pass
func AsEnricher(s Scraper) (Enricher, bool) {
	e, ok := s.(Enricher)
	return e, ok
}
