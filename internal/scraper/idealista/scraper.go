// Package idealista scrapes idealista.com, a JavaScript-heavy portal that
// is only reachable through a real browser session.
package idealista

import (
	"context"
	"time"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/fetch"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// Source is the identifier stored in every idealista record
const Source = "idealista"

const warmupSettle = 3 * time.Second

// Scraper lists idealista through its listing endpoint, falling back to
// the HTML list pages, and enriches records from their detail pages.
type Scraper struct {
	baseURL string
	delay   helpers.Delayer
	backoff helpers.Backoff
	session *scraper.Session
	state   scraper.Tracker
	log     *logger.Logger
}

var (
	_ scraper.Scraper  = (*Scraper)(nil)
	_ scraper.Enricher = (*Scraper)(nil)
)

// New creates an idealista scraper. The browser starts on first use.
func New(deps scraper.Deps) *Scraper {
	deps = deps.WithDefaults()
	return &Scraper{
		baseURL: deps.Config.IdealistaURL,
		delay:   deps.Delay,
		backoff: helpers.Backoff{
			Attempts:   3,
			Multiplier: 2 * time.Second,
			Min:        4 * time.Second,
			Max:        30 * time.Second,
			Sleep:      deps.Sleep,
		},
		session: scraper.NewSession(deps),
		log:     logger.ForScraper(Source),
	}
}

// Name returns the source identifier
func (s *Scraper) Name() string {
	return Source
}

// State returns the orchestrator phase
func (s *Scraper) State() scraper.State {
	return s.state.Get()
}

// Close shuts the browser down
func (s *Scraper) Close() error {
	return s.session.Close()
}

// ParseDetailPage builds a record from a detail page
func (s *Scraper) ParseDetailPage(html, id string, listingType model.ListingType) (model.Property, bool) {
	return ParseDetailPage(html, id, listingType, s.baseURL), true
}

// Scrape warms the browser session up, reads the listing endpoint and
// optionally enriches every ad from its detail page. When the endpoint
// fails or returns nothing, sale and rent fall back to the HTML list pages.
func (s *Scraper) Scrape(ctx context.Context, opts scraper.Options) ([]model.Property, error) {
	listingType := opts.ListingType
	if listingType == "" {
		listingType = model.Sale
	}
	endpoint, ok := ajaxURL(s.baseURL, listingType)
	if !ok {
		return nil, s.state.Finish(errors.NewValidation(Source, "unknown listing type "+string(listingType)))
	}

	s.state.Set(scraper.StateWarmingUp)
	warmup := warmupURL(s.baseURL, listingType)
	s.log.Info().Str("url", warmup).Msg("Warming up browser session")
	if err := s.session.Browser().Warmup(ctx, warmup, warmupSettle); err != nil {
		if ctx.Err() != nil {
			return nil, s.state.Finish(ctx.Err())
		}
		s.log.Warn().Err(err).Msg("Warm-up failed, continuing without session cookies")
	}
	if err := s.delay.Delay(ctx); err != nil {
		return nil, s.state.Finish(err)
	}

	s.state.Set(scraper.StateListing)
	s.log.Info().Str("url", endpoint).Msg("Fetching listing endpoint")

	ads, err := s.fetchAds(ctx, endpoint, warmup)
	if err != nil || len(ads) == 0 {
		if ctx.Err() != nil {
			return nil, s.state.Finish(ctx.Err())
		}
		if err != nil {
			s.log.Error().Err(err).Msg("Listing endpoint failed")
		} else {
			s.log.Warn().Msg("No ads in listing endpoint response")
		}
		if _, ok := listPaths[listingType]; ok {
			s.log.Warn().Msg("Falling back to HTML list pages")
			props, err := s.scrapeHTMLPages(ctx, listingType, opts.MaxPages)
			return props, s.state.Finish(err)
		}
		return []model.Property{}, s.state.Finish(nil)
	}
	s.log.Info().Int("ads", len(ads)).Msg("Listing endpoint returned ads")

	props := make([]model.Property, 0, len(ads))
	seen := make(map[string]bool, len(ads))
	for _, ad := range ads {
		p, err := ParseAjaxAd(ad, listingType, s.baseURL)
		if err != nil {
			s.log.Error().Err(err).Interface("ad_id", ad["adId"]).Msg("Error parsing ad")
			continue
		}
		if seen[p.SourceID] {
			continue
		}
		seen[p.SourceID] = true
		props = append(props, p)
	}
	s.log.Info().Int("properties", len(props)).Msg("Parsed properties from listing endpoint")

	if opts.Enrich {
		props, err = s.enrichAll(ctx, props)
	}
	return props, s.state.Finish(err)
}

func (s *Scraper) fetchAds(ctx context.Context, endpoint, referer string) ([]map[string]any, error) {
	raw, err := s.fetchJSON(ctx, endpoint, referer)
	if err != nil {
		return nil, err
	}
	return Ads(raw)
}

// scrapeHTMLPages collects ids from the list pages, then builds each
// record from its detail page
func (s *Scraper) scrapeHTMLPages(ctx context.Context, listingType model.ListingType, maxPages int) ([]model.Property, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	var ids []string
	totalPages := 1
	for page := 1; page <= maxPages; page++ {
		if page > totalPages {
			break
		}

		url, _ := listURL(s.baseURL, listingType, page)
		s.log.Info().Int("page", page).Str("url", url).Msg("Fetching list page")

		html, err := s.fetchPage(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Error().Err(err).Int("page", page).Msg("List page failed")
			break
		}

		pageIDs, total := ListingIDs(html)
		if page == 1 {
			totalPages = total
		}
		s.log.Info().Int("page", page).Int("listings", len(pageIDs)).Int("total_pages", totalPages).Msg("Parsed list page")
		if len(pageIDs) == 0 {
			break
		}
		ids = append(ids, pageIDs...)

		if page < maxPages {
			if err := s.delay.Delay(ctx); err != nil {
				return nil, err
			}
		}
	}

	ids = dedupe(ids)
	props := []model.Property{}
	if len(ids) == 0 {
		return props, nil
	}

	s.log.Info().Int("count", len(ids)).Msg("Fetching detail pages")
	for i, id := range ids {
		url := detailURL(s.baseURL, id)
		s.log.Info().Int("n", i+1).Int("of", len(ids)).Str("url", url).Msg("Fetching detail page")

		html, err := s.fetchPage(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return props, ctx.Err()
			}
			s.log.Error().Err(err).Str("ad_id", id).Msg("Detail page failed")
		} else {
			p := ParseDetailPage(html, id, listingType, s.baseURL)
			p.Enriched = true
			props = append(props, p)
		}

		if err := s.delay.Delay(ctx); err != nil {
			return props, err
		}
	}
	return props, nil
}

func (s *Scraper) enrichAll(ctx context.Context, props []model.Property) ([]model.Property, error) {
	s.state.Set(scraper.StateEnriching)
	s.log.Info().Int("count", len(props)).Msg("Enriching properties from detail pages")

	for i, p := range props {
		s.log.Info().Int("n", i+1).Int("of", len(props)).Str("ad_id", p.SourceID).Msg("Enriching")
		enriched, err := s.enrichOne(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return props, ctx.Err()
			}
			s.log.Warn().Err(err).Str("ad_id", p.SourceID).Msg("Skipping enrichment")
		} else {
			props[i] = enriched
		}

		if err := s.delay.Delay(ctx); err != nil {
			return props, err
		}
	}
	return props, nil
}

func (s *Scraper) enrichOne(ctx context.Context, p model.Property) (model.Property, error) {
	html, err := s.fetchPage(ctx, detailURL(s.baseURL, p.SourceID))
	if err != nil {
		return p, err
	}
	detail := ParseDetailPage(html, p.SourceID, p.ListingType, s.baseURL)
	if !HasListingData(detail) {
		return p, errors.NewParsing(Source, "detail page of "+p.SourceID+" has no listing data", nil)
	}
	merged := Merge(p, detail)
	merged.Enriched = true
	return merged, nil
}

// EnrichProperty merges the detail page into a stored record. A page with
// no listing data leaves the record as it was and returns an error.
func (s *Scraper) EnrichProperty(ctx context.Context, p model.Property) (model.Property, error) {
	if err := s.delay.Delay(ctx); err != nil {
		return p, err
	}
	enriched, err := s.enrichOne(ctx, p)
	if err != nil {
		s.log.Warn().Err(err).Str("ad_id", p.SourceID).Msg("Failed to enrich")
		return p, err
	}
	return enriched, nil
}

func retryableFetch(err error) bool {
	return errors.IsFetch(err) && errors.IsRetryable(err)
}

func (s *Scraper) fetchPage(ctx context.Context, url string) (string, error) {
	var html string
	err := helpers.Retry(ctx, s.backoff, retryableFetch, func() error {
		var err error
		html, err = s.session.Browser().Fetch(ctx, url)
		return err
	})
	return html, err
}

func (s *Scraper) fetchJSON(ctx context.Context, url, referer string) ([]byte, error) {
	var raw []byte
	err := helpers.Retry(ctx, s.backoff, retryableFetch, func() error {
		var err error
		raw, err = s.session.Browser().FetchJSON(ctx, url, fetch.WithReferer(referer))
		return err
	})
	return raw, err
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
