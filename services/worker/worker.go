// Package worker runs the resumable enrichment pass over a record file
package worker

import (
	"context"
	"fmt"

	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/internal/store"
	"github.com/dealmungchi/mirascraper/logger"
)

// Resolver returns the enricher for a source, or an error when the source
// is unknown or cannot enrich
type Resolver func(source string) (scraper.Enricher, error)

// Stats summarizes one pass
type Stats struct {
	Total           int
	AlreadyEnriched int
	Enriched        int
	Failed          int
	Unsupported     int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d enriched, %d already enriched, %d failed, %d unsupported (of %d)",
		s.Enriched, s.AlreadyEnriched, s.Failed, s.Unsupported, s.Total)
}

// Worker enriches stored records one at a time
type Worker struct {
	resolve Resolver
	log     *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(resolve Resolver) *Worker {
	return &Worker{
		resolve: resolve,
		log:     logger.ForWorker(),
	}
}

// Enrich processes every record of path that is not enriched yet. The whole
// file is rewritten atomically after each enriched record, so an
// interrupted pass picks up where it stopped.
func (w *Worker) Enrich(ctx context.Context, path string) (Stats, error) {
	props, err := store.ReadFile(path)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(props)}
	enrichers := w.resolveAll(props)

	for i, p := range props {
		if p.Enriched {
			stats.AlreadyEnriched++
			continue
		}
		e := enrichers[p.Source]
		if e == nil {
			stats.Unsupported++
			continue
		}

		w.log.Info().Int("n", i+1).Int("of", len(props)).Str("id", p.ID).Msg("Enriching")
		enriched, err := e.EnrichProperty(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			w.log.Warn().Err(err).Str("id", p.ID).Msg("Enrichment failed")
			continue
		}
		if !enriched.Enriched {
			stats.Failed++
			w.log.Warn().Str("id", p.ID).Msg("Nothing to enrich from")
			continue
		}

		props[i] = enriched
		stats.Enriched++
		if err := store.WriteFile(path, props); err != nil {
			return stats, fmt.Errorf("failed to save progress to %s: %w", path, err)
		}
	}

	w.log.Info().Str("path", path).Str("stats", stats.String()).Msg("Enrichment pass finished")
	return stats, nil
}

// resolveAll builds one enricher per source that has work left
func (w *Worker) resolveAll(props []model.Property) map[string]scraper.Enricher {
	enrichers := make(map[string]scraper.Enricher)
	tried := make(map[string]bool)
	for _, p := range props {
		if p.Enriched || tried[p.Source] {
			continue
		}
		tried[p.Source] = true

		e, err := w.resolve(p.Source)
		if err != nil {
			w.log.Warn().Err(err).Str("source", p.Source).Msg("Source cannot be enriched")
			continue
		}
		enrichers[p.Source] = e
	}
	return enrichers
}
