package fetch

import (
	"context"
	"time"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/pkg/errors"

	"dario.cat/mergo"
	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// HTTPOptions configures an HTTPFetcher
type HTTPOptions struct {
	Timeout        time.Duration
	ProxyURL       string
	UserAgent      string
	AcceptLanguage string
}

// HTTPFetcher fetches pages with resty behind a browser-like TLS
// fingerprint.
type HTTPFetcher struct {
	client *resty.Client
}

var defaultHTTPOptions = HTTPOptions{
	Timeout:        30 * time.Second,
	UserAgent:      helpers.DefaultUserAgent,
	AcceptLanguage: "en-US,en;q=0.9,es;q=0.8",
}

// NewHTTPFetcher creates a new HTTP fetcher. Empty options take their
// defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	_ = mergo.Merge(&opts, defaultHTTPOptions)

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeaders(map[string]string{
			"User-Agent":      opts.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": opts.AcceptLanguage,
		})
	if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	return &HTTPFetcher{client: client}
}

// Fetch issues a GET and returns the UTF-8 body
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts ...Option) (string, error) {
	req := NewRequest(opts...)

	r := f.client.R().SetContext(ctx)
	if req.AcceptLanguage != "" {
		r.SetHeader("Accept-Language", req.AcceptLanguage)
	}
	if req.Referer != "" {
		r.SetHeader("Referer", req.Referer)
	}

	resp, err := r.Get(url)
	if err != nil {
		return "", errors.NewNetwork("http", "request to "+url+" failed", err)
	}
	if resp.StatusCode() >= 400 {
		return "", errors.NewFetch(resp.StatusCode(), url)
	}

	body, err := helpers.DecodeBody(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return "", errors.NewParsing("http", "failed to decode "+url, err)
	}
	return body, nil
}

// Close releases idle connections
func (f *HTTPFetcher) Close() error {
	f.client.GetClient().CloseIdleConnections()
	return nil
}
