// Package fetchtest provides an in-memory fetch.Browser for tests
package fetchtest

import (
	"context"
	"sync"
	"time"

	"github.com/dealmungchi/mirascraper/internal/fetch"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// Response is one canned answer. A Status >= 400 becomes a FetchError.
type Response struct {
	Body   string
	Status int
	Err    error
}

// Call records one request made against the fake
type Call struct {
	Kind    string
	URL     string
	Request fetch.Request
}

// Fake serves canned pages by URL. When a URL has several responses they
// are handed out in order and the last one repeats. Unknown URLs get 404.
type Fake struct {
	mu      sync.Mutex
	pages   map[string][]Response
	json    map[string][]Response
	calls   []Call
	warmups []string
	closed  int
}

// New creates an empty fake
func New() *Fake {
	return &Fake{pages: make(map[string][]Response), json: make(map[string][]Response)}
}

// Page registers HTML responses for url
func (f *Fake) Page(url string, responses ...Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = append(f.pages[url], responses...)
	return f
}

// HTML registers a single 200 page
func (f *Fake) HTML(url, body string) *Fake {
	return f.Page(url, Response{Body: body})
}

// JSON registers responses for FetchJSON
func (f *Fake) JSON(url string, responses ...Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.json[url] = append(f.json[url], responses...)
	return f
}

func (f *Fake) next(table map[string][]Response, kind, url string, opts []fetch.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Kind: kind, URL: url, Request: fetch.NewRequest(opts...)})
	queue, ok := table[url]
	if !ok || len(queue) == 0 {
		return "", errors.NewFetch(404, url)
	}
	resp := queue[0]
	if len(queue) > 1 {
		table[url] = queue[1:]
	}
	if resp.Err != nil {
		return "", resp.Err
	}
	if resp.Status >= 400 {
		return "", errors.NewFetch(resp.Status, url)
	}
	return resp.Body, nil
}

// Fetch implements fetch.Fetcher
func (f *Fake) Fetch(ctx context.Context, url string, opts ...fetch.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.next(f.pages, "page", url, opts)
}

// FetchJSON implements fetch.Browser
func (f *Fake) FetchJSON(ctx context.Context, url string, opts ...fetch.Option) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := f.next(f.json, "json", url, opts)
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Warmup implements fetch.Browser
func (f *Fake) Warmup(ctx context.Context, url string, settle time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmups = append(f.warmups, url)
	return ctx.Err()
}

// Close implements fetch.Fetcher
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// Calls returns every request made so far
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// URLs returns the requested URLs of the given kind ("page" or "json")
func (f *Fake) URLs(kind string) []string {
	var out []string
	for _, c := range f.Calls() {
		if c.Kind == kind {
			out = append(out, c.URL)
		}
	}
	return out
}

// Count returns how many times url was requested
func (f *Fake) Count(url string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.URL == url {
			n++
		}
	}
	return n
}

// Warmups returns the warmed-up URLs
func (f *Fake) Warmups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.warmups...)
}

// Closed returns how many times Close was called
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
