// Package spainrealestate scrapes spain-real.estate. Its server-rendered
// pages are read over plain HTTP; after repeated 403 answers the scraper
// switches to a browser session for the rest of its life.
package spainrealestate

import (
	"context"
	"math"
	"time"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/fetch"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// Source is the identifier stored in every spain-real-estate record
const Source = "spain-real-estate"

// ItemsPerPage is the page size of the list pages
const ItemsPerPage = 24

const (
	cooldownKey     = "spain-real-estate:cooldown"
	spanishLanguage = "es,es-ES;q=0.9"
	russianLanguage = "ru,ru-RU;q=0.9"
)

// Scraper walks the list page tabs of spain-real.estate and completes
// records from their detail pages and translated versions.
type Scraper struct {
	baseURL    string
	region     string
	regionID   int
	attempts   int
	cooldown   time.Duration
	delay      helpers.Delayer
	sleep      helpers.Sleeper
	marker     *fetch.Cooldown
	session    *scraper.Session
	useBrowser bool
	state      scraper.Tracker
	log        *logger.Logger
}

var (
	_ scraper.Scraper  = (*Scraper)(nil)
	_ scraper.Enricher = (*Scraper)(nil)
)

// New creates a spain-real-estate scraper
func New(deps scraper.Deps) *Scraper {
	deps = deps.WithDefaults()
	cfg := deps.Config
	return &Scraper{
		baseURL:  cfg.SpainRealEstateURL,
		region:   cfg.Region,
		regionID: cfg.RegionID,
		attempts: max(cfg.MaxRetries, 1),
		cooldown: cfg.Cooldown(),
		delay:    deps.Delay,
		sleep:    deps.Sleep,
		marker:   fetch.NewCooldown(deps.Cache, cooldownKey, deps.Sleep),
		session:  scraper.NewSession(deps),
		log:      logger.ForScraper(Source),
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

// UsingBrowser reports whether the scraper has switched to the browser
func (s *Scraper) UsingBrowser() bool {
	return s.useBrowser
}

// Close releases the HTTP client and the browser, if one was started
func (s *Scraper) Close() error {
	return s.session.Close()
}

// ParseDetailPage builds a record from a detail page. It reports false when
// the page carries no listing data.
func (s *Scraper) ParseDetailPage(html, id string, listingType model.ListingType) (model.Property, bool) {
	detail := ParseDetail(html)
	if detail.Empty() {
		return model.Property{}, false
	}
	item := Item{SourceID: id}
	item.Apply(detail)
	return BuildProperty(item, listingType, "apartment"), true
}

// Scrape walks every tab page by page until the page limit, the announced
// total or an empty page. A failed page ends its tab.
func (s *Scraper) Scrape(ctx context.Context, opts scraper.Options) ([]model.Property, error) {
	listingType := opts.ListingType
	if listingType == "" {
		listingType = model.Sale
	}
	tabs := opts.Tabs
	if len(tabs) == 0 {
		tabs = Tabs
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = math.MaxInt
	}

	s.state.Set(scraper.StateListing)
	props := []model.Property{}
	seen := map[string]bool{}

	for _, tab := range tabs {
		totalPages := maxPages
		for page := 1; page <= min(maxPages, totalPages); page++ {
			url := ListURL(s.baseURL, listingType, tab, page, s.region, s.regionID)
			s.log.Info().Str("tab", tab).Int("page", page).Str("url", url).Msg("Fetching list page")

			html, err := s.fetchPage(ctx, url, "")
			if err != nil {
				if ctx.Err() != nil {
					return props, s.state.Finish(ctx.Err())
				}
				s.log.Error().Err(err).Str("tab", tab).Int("page", page).Msg("List page failed")
				break
			}

			items := ParseListPage(html, s.baseURL)
			if len(items) == 0 {
				s.log.Info().Str("tab", tab).Int("page", page).Msg("No listings, tab done")
				break
			}

			if page == 1 {
				if count := ParseTotalCount(html); count > 0 {
					totalPages = (count + ItemsPerPage - 1) / ItemsPerPage
				} else {
					totalPages = ParseLastPage(html)
				}
				s.log.Info().Str("tab", tab).Int("total_pages", totalPages).Msg("Tab size")
			}

			for _, item := range items {
				if seen[item.SourceID] {
					continue
				}
				seen[item.SourceID] = true

				enriched := false
				if opts.Enrich && item.SourceURL != "" {
					s.state.Set(scraper.StateEnriching)
					if err := s.delay.Delay(ctx); err != nil {
						return props, s.state.Finish(err)
					}
					full, err := s.enrichItem(ctx, item)
					if err != nil {
						if ctx.Err() != nil {
							return props, s.state.Finish(ctx.Err())
						}
						s.log.Warn().Err(err).Str("source_id", item.SourceID).Msg("Skipping enrichment")
					} else {
						item, enriched = full, true
					}
					s.state.Set(scraper.StateListing)
				}

				p := BuildProperty(item, listingType, tab)
				p.Enriched = enriched
				props = append(props, p)
			}

			s.log.Info().Str("tab", tab).Int("page", page).Int("items", len(items)).Int("total", len(props)).Msg("Parsed list page")
			if err := s.delay.Delay(ctx); err != nil {
				return props, s.state.Finish(err)
			}
		}
	}

	return props, s.state.Finish(nil)
}

// enrichItem completes item from its detail page, then adds the Spanish
// and Russian versions. Failed translations are skipped.
func (s *Scraper) enrichItem(ctx context.Context, item Item) (Item, error) {
	html, err := s.fetchPage(ctx, item.SourceURL, "")
	if err != nil {
		return item, err
	}

	detail := ParseDetail(html)
	if detail.Empty() {
		return item, errors.NewParsing(Source, "detail page "+item.SourceURL+" has no listing data", nil)
	}
	item.Apply(detail)

	translations := append([]model.Translation{}, item.Translations...)
	if en := ParseTranslation(html); en.Title != "" || en.Description != "" {
		en.Locale = "en"
		translations = append(translations, en)
	}

	if url := detail.TranslationURLs["es"]; url != "" {
		es, ok, err := s.fetchTranslation(ctx, url, spanishLanguage, "es")
		if err != nil {
			return item, err
		}
		if ok {
			item.Spanish = &es
		}
	}

	if url := detail.TranslationURLs["ru"]; url != "" {
		ru, ok, err := s.fetchTranslation(ctx, url, russianLanguage, "ru")
		if err != nil {
			return item, err
		}
		if ok {
			translations = append(translations, ru)
		}
	}

	item.Translations = translations
	return item, nil
}

// fetchTranslation only returns an error on cancellation
func (s *Scraper) fetchTranslation(ctx context.Context, url, acceptLanguage, locale string) (model.Translation, bool, error) {
	if err := s.delay.Delay(ctx); err != nil {
		return model.Translation{}, false, err
	}
	html, err := s.fetchPage(ctx, url, acceptLanguage)
	if err != nil {
		if ctx.Err() != nil {
			return model.Translation{}, false, ctx.Err()
		}
		s.log.Debug().Err(err).Str("locale", locale).Str("url", url).Msg("Translation page failed")
		return model.Translation{}, false, nil
	}
	tr := ParseTranslation(html)
	if tr.Title == "" && tr.Description == "" {
		return model.Translation{}, false, nil
	}
	tr.Locale = locale
	return tr, true, nil
}

// EnrichProperty rebuilds a stored record from its detail page and fills
// the remaining gaps from the stored record. The English title of the
// record, or of its "en" translation, is kept for category guessing and
// location. A detail page without listing data returns the input with an
// error.
func (s *Scraper) EnrichProperty(ctx context.Context, p model.Property) (model.Property, error) {
	if p.SourceURL == "" {
		s.log.Debug().Str("source_id", p.SourceID).Msg("No source URL, nothing to enrich")
		return p, nil
	}

	title := p.Title
	if en, ok := p.Translation("en"); ok && en.Title != "" {
		title = en.Title
	}
	item := Item{
		SourceID:  p.SourceID,
		Title:     title,
		SourceURL: p.SourceURL,
		IsRental:  p.ListingType == model.Rent,
	}
	if p.Price != nil {
		price := *p.Price
		item.Detail.Price = &price
	}

	if err := s.delay.Delay(ctx); err != nil {
		return p, err
	}
	item, err := s.enrichItem(ctx, item)
	if err != nil {
		s.log.Warn().Err(err).Str("source_id", p.SourceID).Msg("Failed to enrich")
		return p, err
	}

	enriched := KeepStored(p, BuildProperty(item, p.ListingType, tabFor(p.SubCategory)))
	enriched.Enriched = true
	return enriched, nil
}

// fetchPage reads url over HTTP. A 403 marks the shared cooldown and waits
// cooldown × attempt before retrying; once every attempt was refused the
// scraper switches to the browser for good.
func (s *Scraper) fetchPage(ctx context.Context, url, acceptLanguage string) (string, error) {
	var opts []fetch.Option
	if acceptLanguage != "" {
		opts = append(opts, fetch.WithAcceptLanguage(acceptLanguage))
	}

	if s.useBrowser {
		return s.session.Browser().Fetch(ctx, url, opts...)
	}

	if err := s.marker.Wait(ctx); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		html, err := s.session.HTTP().Fetch(ctx, url, opts...)
		if err == nil {
			return html, nil
		}
		if errors.StatusCode(err) != 403 {
			return "", err
		}

		wait := s.cooldown * time.Duration(attempt)
		s.log.Warn().Int("attempt", attempt).Dur("cooldown", wait).Str("url", url).Msg("Rate limited")
		s.marker.Mark(wait)
		if err := s.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	s.log.Warn().Int("attempts", s.attempts).Msg("HTTP keeps getting 403, switching to browser")
	s.useBrowser = true
	return s.session.Browser().Fetch(ctx, url, opts...)
}
