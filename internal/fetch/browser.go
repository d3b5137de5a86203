package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"

	"dario.cat/mergo"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures a ChromeSession
type ChromeOptions struct {
	Headless       bool
	UserAgent      string
	Locale         string
	AcceptLanguage string
	Timeout        time.Duration
}

const restoreTimeout = 10 * time.Second

// ChromeSession drives a single Chrome tab. The browser is started on the
// first call and reused until Close.
type ChromeSession struct {
	opts ChromeOptions
	run  func(ctx context.Context, actions ...chromedp.Action) error
	log  *logger.Logger

	mu          sync.Mutex
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Headless is left out: false is a valid choice, not a missing one
var defaultChromeOptions = ChromeOptions{
	UserAgent:      helpers.DefaultUserAgent,
	Locale:         "es-ES",
	AcceptLanguage: "es-ES,es;q=0.9,en;q=0.8",
	Timeout:        60 * time.Second,
}

// NewChromeSession creates a new, not yet started, Chrome session. Empty
// options take their defaults.
func NewChromeSession(opts ChromeOptions) *ChromeSession {
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	_ = mergo.Merge(&opts, defaultChromeOptions)
	return &ChromeSession{opts: opts, run: chromedp.Run, log: logger.ForBrowser()}
}

func (s *ChromeSession) ensure() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab != nil {
		return s.tab, nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", s.opts.Locale),
		chromedp.UserAgent(s.opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := s.run(tab, network.Enable(), s.headers(s.opts.AcceptLanguage)); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, errors.NewNetwork("browser", "failed to start chrome", err)
	}

	s.tab, s.cancelTab, s.cancelAlloc = tab, cancelTab, cancelAlloc
	return tab, nil
}

func (s *ChromeSession) headers(acceptLanguage string) chromedp.Action {
	return network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage})
}

// restoreLanguage puts the session Accept-Language back after a request
// override. It runs on the tab because the request context may be done.
func (s *ChromeSession) restoreLanguage(tab context.Context) error {
	ctx, cancel := context.WithTimeout(tab, restoreTimeout)
	defer cancel()
	if err := s.run(ctx, s.headers(s.opts.AcceptLanguage)); err != nil {
		err = errors.NewNetwork("browser", "failed to restore Accept-Language", err)
		s.log.Warn().Err(err).Str("accept_language", s.opts.AcceptLanguage).Msg("Tab keeps the overridden Accept-Language")
		return err
	}
	return nil
}

// runContext bounds one operation by the session timeout and the caller's ctx
func (s *ChromeSession) runContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	tab, err := s.ensure()
	if err != nil {
		return nil, nil, err
	}
	runCtx, cancel := context.WithTimeout(tab, s.opts.Timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}, nil
}

// Fetch navigates the tab to url and returns the rendered document
func (s *ChromeSession) Fetch(ctx context.Context, url string, opts ...Option) (string, error) {
	req := NewRequest(opts...)

	tab, err := s.ensure()
	if err != nil {
		return "", err
	}
	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	if req.AcceptLanguage != "" {
		if err := s.run(runCtx, s.headers(req.AcceptLanguage)); err != nil {
			return "", errors.NewNetwork("browser", "failed to set headers", err)
		}
		defer s.restoreLanguage(tab)
	}

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return "", errors.NewNetwork("browser", "navigation to "+url+" failed", err)
	}
	if resp != nil && resp.Status >= 400 {
		return "", errors.NewFetch(int(resp.Status), url)
	}

	var html string
	if err := s.run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", errors.NewParsing("browser", "failed to read document of "+url, err)
	}
	return html, nil
}

// Warmup visits url so the portal hands out its session cookies
func (s *ChromeSession) Warmup(ctx context.Context, url string, settle time.Duration) error {
	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := s.run(runCtx, chromedp.Navigate(url), chromedp.Sleep(settle)); err != nil {
		return errors.NewNetwork("browser", "warm-up of "+url+" failed", err)
	}
	return nil
}

const fetchJSONScript = `(async () => {
	const referer = %s;
	const init = {
		credentials: 'include',
		headers: {
			'X-Requested-With': 'XMLHttpRequest',
			'Accept': 'application/json, text/javascript, */*; q=0.01'
		}
	};
	if (referer) {
		init.referrer = referer;
	}
	const resp = await fetch(%s, init);
	if (!resp.ok) {
		return JSON.stringify({__status: resp.status});
	}
	return JSON.stringify(await resp.json());
})()`

// FetchJSON runs fetch() inside the current page, so the request carries
// the cookies of the warmed-up session. It returns the raw JSON body.
func (s *ChromeSession) FetchJSON(ctx context.Context, url string, opts ...Option) ([]byte, error) {
	req := NewRequest(opts...)

	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	script := fmt.Sprintf(fetchJSONScript, jsString(req.Referer), jsString(url))

	var raw string
	err = s.run(runCtx, chromedp.Evaluate(script, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, errors.NewNetwork("browser", "in-page fetch of "+url+" failed", err)
	}

	if status, ok := statusMarker([]byte(raw)); ok {
		return nil, errors.NewFetch(status, url)
	}
	return []byte(raw), nil
}

// Close shuts the tab and the browser down
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		return nil
	}
	s.cancelTab()
	s.cancelAlloc()
	s.tab, s.cancelTab, s.cancelAlloc = nil, nil, nil
	return nil
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// statusMarker recognizes the {"__status": N} object the in-page script
// returns for a failed response
func statusMarker(raw []byte) (int, bool) {
	var marker map[string]json.RawMessage
	if err := json.Unmarshal(raw, &marker); err != nil || len(marker) != 1 {
		return 0, false
	}
	v, ok := marker["__status"]
	if !ok {
		return 0, false
	}
	var status int
	if err := json.Unmarshal(v, &status); err != nil {
		return 0, false
	}
	return status, true
}
