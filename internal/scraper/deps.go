package scraper

import (
	"sync"

	"github.com/dealmungchi/mirascraper/config"
	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/fetch"
	"github.com/dealmungchi/mirascraper/services/cache"
)

// Deps are the collaborators handed to a scraper constructor. Zero fields
// get production defaults.
type Deps struct {
	Config *config.Config
	Cache  cache.CacheService
	Delay  helpers.Delayer
	Sleep  helpers.Sleeper

	// HTTP and Browser replace the transports built from Config. Tests use
	// them to inject fakes.
	HTTP    fetch.Fetcher
	Browser fetch.Browser
}

// WithDefaults fills the zero fields
func (d Deps) WithDefaults() Deps {
	if d.Config == nil {
		d.Config = config.LoadConfig()
	}
	if d.Sleep == nil {
		d.Sleep = helpers.SleepContext
	}
	if d.Delay == nil {
		lo, hi := d.Config.DelayBounds()
		delay := helpers.NewRandomDelay(lo, hi)
		delay.Sleep = d.Sleep
		d.Delay = delay
	}
	if d.Cache == nil {
		d.Cache = cache.NewMemoryCache()
	}
	return d
}

// Session owns the transports of one orchestrator. Each one is created on
// first use and released by Close.
type Session struct {
	mu         sync.Mutex
	cfg        *config.Config
	http       fetch.Fetcher
	browser    fetch.Browser
	newHTTP    func() fetch.Fetcher
	newBrowser func() fetch.Browser
}

// NewSession creates a session from deps. Injected transports are used as is.
func NewSession(d Deps) *Session {
	cfg := d.Config
	s := &Session{cfg: cfg, http: d.HTTP, browser: d.Browser}
	s.newHTTP = func() fetch.Fetcher {
		return fetch.NewHTTPFetcher(fetch.HTTPOptions{
			Timeout:   cfg.Timeout(),
			ProxyURL:  cfg.HTTPProxyURL,
			UserAgent: helpers.RandomUserAgent(),
		})
	}
	s.newBrowser = func() fetch.Browser {
		return fetch.NewChromeSession(fetch.ChromeOptions{
			Headless: cfg.ChromeHeadless,
			Timeout:  2 * cfg.Timeout(),
		})
	}
	return s
}

// HTTP returns the plain HTTP transport
func (s *Session) HTTP() fetch.Fetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http == nil {
		s.http = s.newHTTP()
	}
	return s.http
}

// Browser returns the browser transport
func (s *Session) Browser() fetch.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		s.browser = s.newBrowser()
	}
	return s.browser
}

// Close releases every transport that was created
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.http != nil {
		if err := s.http.Close(); err != nil {
			firstErr = err
		}
		s.http = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.browser = nil
	}
	return firstErr
}
