package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML or embedded script parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeSink represents persistence errors
	ErrorTypeSink ErrorType = "sink"
	// ErrorTypeValidation represents record validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeUnknownSource represents a request for a scraper that does not exist
	ErrorTypeUnknownSource ErrorType = "unknown_source"
)

var (
	// ErrUnknownSource is matched by errors.Is for every unknown source error
	ErrUnknownSource = stderrors.New("unknown source")
	// ErrMissingCredentials is returned when a sink is built without its credentials
	ErrMissingCredentials = stderrors.New("missing credentials")
)

// ScraperError represents a scraper-specific error
type ScraperError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScraperError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ScraperError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScraperError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeRateLimit:
		return true
	default:
		return IsRetryable(e.Err)
	}
}

// New creates a new ScraperError
func New(errType ErrorType, source, message string, err error) *ScraperError {
	return &ScraperError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *ScraperError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *ScraperError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *ScraperError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *ScraperError {
	return New(ErrorTypeCache, source, message, err)
}

// NewSink creates a new persistence error
func NewSink(sink, message string, err error) *ScraperError {
	return New(ErrorTypeSink, sink, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ScraperError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScraperError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewUnknownSource creates an error for a scraper name that is not registered
func NewUnknownSource(name string) *ScraperError {
	return New(ErrorTypeUnknownSource, name, "unknown source: "+name, ErrUnknownSource)
}

// FetchError is returned by fetchers when the remote answers with a status >= 400
type FetchError struct {
	StatusCode int
	URL        string
}

// NewFetch creates a new FetchError
func NewFetch(statusCode int, url string) *FetchError {
	return &FetchError{StatusCode: statusCode, URL: url}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// IsRetryable reports whether the status belongs to the transient set
func (e *FetchError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// IsRetryable returns true if err carries a retryable FetchError
func IsRetryable(err error) bool {
	var fe *FetchError
	if stderrors.As(err, &fe) {
		return fe.IsRetryable()
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var fe *FetchError
	if stderrors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

// IsFetch reports whether err carries a FetchError
func IsFetch(err error) bool {
	var fe *FetchError
	return stderrors.As(err, &fe)
}
