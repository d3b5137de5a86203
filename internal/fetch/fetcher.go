// Package fetch holds the transports the scrapers talk to the portals with:
// a plain HTTP client and a Chrome session.
package fetch

import (
	"context"
	"time"
)

// Request carries per-call overrides
type Request struct {
	AcceptLanguage string
	Referer        string
}

// Option customizes a single fetch
type Option func(*Request)

// WithAcceptLanguage overrides the Accept-Language header for one request
func WithAcceptLanguage(v string) Option {
	return func(r *Request) { r.AcceptLanguage = v }
}

// WithReferer sets the referer for one request
func WithReferer(v string) Option {
	return func(r *Request) { r.Referer = v }
}

// NewRequest applies opts to an empty Request
func NewRequest(opts ...Option) Request {
	var r Request
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Fetcher returns a page's HTML. A status >= 400 is reported as
// *errors.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts ...Option) (string, error)
	Close() error
}

// Browser is a Fetcher backed by a real browser tab, so it can also warm
// up a session and run fetch() from inside the page.
type Browser interface {
	Fetcher
	Warmup(ctx context.Context, url string, settle time.Duration) error
	FetchJSON(ctx context.Context, url string, opts ...Option) ([]byte, error)
}
