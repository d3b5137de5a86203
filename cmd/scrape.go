package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealmungchi/mirascraper/config"
	"github.com/dealmungchi/mirascraper/internal/factory"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/internal/scraper/spainrealestate"
	"github.com/dealmungchi/mirascraper/internal/store"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

type scrapeOptions struct {
	source      string
	listingType string
	maxPages    int
	enrich      bool
	output      string
	tabs        []string
}

func (o *scrapeOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.source, "source", "idealista", "Scraper source ("+strings.Join(factory.Names(), ", ")+")")
	f.StringVar(&o.listingType, "listing-type", "sale", "sale, rent, or new-building")
	f.IntVar(&o.maxPages, "max-pages", 2, "Max list pages")
	f.BoolVar(&o.enrich, "enrich", false, "Fetch detail pages for extra data (slower)")
	f.StringVar(&o.output, "output", "data", "Output directory")
	f.StringSliceVar(&o.tabs, "tabs", nil, "Property type tabs (spain-real-estate only)")
}

func (o *scrapeOptions) validate() error {
	if !factory.Has(o.source) {
		return errors.NewUnknownSource(o.source)
	}
	if !model.ListingType(o.listingType).Valid() {
		return errors.NewValidation(o.source, "unknown listing type "+o.listingType)
	}
	return nil
}

func newScrapeCommand(flags *globalFlags) *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape property listings and save as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			_, _, err = scrapeToFile(cmd, cfg, opts)
			return err
		},
	}
	opts.bind(cmd)
	return cmd
}

// scrapeToFile runs the scraper and writes what it found. An interrupted
// scrape still saves its partial results before the error is returned.
func scrapeToFile(cmd *cobra.Command, cfg *config.Config, opts *scrapeOptions) ([]model.Property, string, error) {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	log := logger.ForScraper(opts.source)

	tabs := opts.tabs
	if len(tabs) > 0 && opts.source != spainrealestate.Source {
		log.Warn().Strs("tabs", tabs).Msg("--tabs only applies to spain-real-estate, ignoring")
		tabs = nil
	}

	s, err := newScraper(opts.source, newDeps(cfg))
	if err != nil {
		return nil, "", err
	}
	defer s.Close()

	started := time.Now()
	props, scrapeErr := s.Scrape(ctx, scraper.Options{
		ListingType: model.ListingType(opts.listingType),
		MaxPages:    opts.maxPages,
		Enrich:      opts.enrich,
		Tabs:        tabs,
	})
	log.Info().Int("properties", len(props)).Dur("elapsed", time.Since(started)).Msg("Scrape finished")

	if len(props) == 0 {
		if scrapeErr != nil {
			return nil, "", scrapeErr
		}
		fmt.Fprintln(out, "No properties found.")
		return nil, "", nil
	}

	path := filepath.Join(opts.output, store.FileName(opts.source, model.ListingType(opts.listingType), time.Now()))
	if err := store.WriteFile(path, props); err != nil {
		return nil, "", err
	}
	fmt.Fprintf(out, "Saved %d properties to %s\n", len(props), path)

	return props, path, scrapeErr
}
