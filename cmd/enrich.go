package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
	"github.com/dealmungchi/mirascraper/services/worker"
)

// enricherPool builds each source's scraper once and closes them all at the end
type enricherPool struct {
	deps     scraper.Deps
	scrapers []scraper.Scraper
}

func (p *enricherPool) resolve(source string) (scraper.Enricher, error) {
	s, err := newScraper(source, p.deps)
	if err != nil {
		return nil, err
	}
	p.scrapers = append(p.scrapers, s)

	e, ok := scraper.AsEnricher(s)
	if !ok {
		return nil, errors.NewValidation(source, "source does not support enrichment")
	}
	return e, nil
}

func (p *enricherPool) Close() {
	for _, s := range p.scrapers {
		if err := s.Close(); err != nil {
			logger.Warn("Failed to close %s scraper: %v", s.Name(), err)
		}
	}
}

func newEnrichCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich FILE",
		Short: "Enrich the records of a JSONL file in place, resuming where a previous run stopped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !fileExists(path) {
				return fmt.Errorf("file not found: %s", path)
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			pool := &enricherPool{deps: newDeps(cfg)}
			defer pool.Close()

			stats, err := worker.NewWorker(pool.resolve).Enrich(ctx, path)
			fmt.Fprintf(cmd.OutOrStdout(), "Enrichment of %s: %s\n", path, stats)
			return err
		},
	}
}
