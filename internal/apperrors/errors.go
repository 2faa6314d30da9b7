package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// FetchKind classifies a transport-level failure.
type FetchKind string

const (
	FetchTimeout FetchKind = "timeout"
	FetchDNS     FetchKind = "dns"
	FetchTLS     FetchKind = "tls"
	FetchNetwork FetchKind = "network"
)

// FetchError is a network-level failure (timeout, DNS, TLS, connection).
type FetchError struct {
	URL  string
	Kind FetchKind
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *FetchError) Is(target error) bool {
	_, ok := target.(*FetchError)
	return ok
}

// NewFetchError creates a new FetchError.
func NewFetchError(url string, kind FetchKind, err error) *FetchError {
	return &FetchError{URL: url, Kind: kind, Err: err}
}

// DNSResolutionError is returned when every configured resolver failed for a host.
type DNSResolutionError struct {
	Host      string
	Resolvers []string
	Err       error
}

// Error implements the error interface.
func (e *DNSResolutionError) Error() string {
	return fmt.Sprintf("DNS resolution failed for %s (tried %d resolvers): %v", e.Host, len(e.Resolvers), e.Err)
}

// Unwrap returns the last resolver error.
func (e *DNSResolutionError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *DNSResolutionError) Is(target error) bool {
	_, ok := target.(*DNSResolutionError)
	return ok
}

// HTTPStatusError carries a non-success HTTP status so callers can react to it.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Is allows for error checking with errors.Is().
func (e *HTTPStatusError) Is(target error) bool {
	_, ok := target.(*HTTPStatusError)
	return ok
}

// IsStale reports whether the remote signalled a stale session (HTTP 409).
func (e *HTTPStatusError) IsStale() bool {
	return e.StatusCode == http.StatusConflict
}

// NewHTTPStatusError creates a new HTTPStatusError.
func NewHTTPStatusError(url string, statusCode int) *HTTPStatusError {
	return &HTTPStatusError{URL: url, StatusCode: statusCode}
}

// RedirectLoopError aborts a redirect chain that revisits a URL or exceeds the hop cap.
type RedirectLoopError struct {
	URL  string
	Hops int
}

// Error implements the error interface.
func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop detected at %s after %d hops", e.URL, e.Hops)
}

// Is allows for error checking with errors.Is().
func (e *RedirectLoopError) Is(target error) bool {
	_, ok := target.(*RedirectLoopError)
	return ok
}

// ParseError means an expected element or field was not found.
type ParseError struct {
	URL  string
	What string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse failed: %s not found", e.What)
	}
	return fmt.Sprintf("parse failed for %s: %s not found", e.URL, e.What)
}

// Is allows for error checking with errors.Is().
func (e *ParseError) Is(target error) bool {
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError.
func NewParseError(url, what string) *ParseError {
	return &ParseError{URL: url, What: what}
}

// UnpackError is returned when a packed script is not recognized or yields no expected field.
type UnpackError struct {
	Reason string
}

// Error implements the error interface.
func (e *UnpackError) Error() string {
	return "unpack failed: " + e.Reason
}

// Is allows for error checking with errors.Is().
func (e *UnpackError) Is(target error) bool {
	_, ok := target.(*UnpackError)
	return ok
}

// NoExtractorFoundError is returned when no extractor claims a URL's host.
type NoExtractorFoundError struct {
	URL  string
	Host string
}

// Error implements the error interface.
func (e *NoExtractorFoundError) Error() string {
	return fmt.Sprintf("no extractor found for host %q (%s)", e.Host, e.URL)
}

// Is allows for error checking with errors.Is().
func (e *NoExtractorFoundError) Is(target error) bool {
	_, ok := target.(*NoExtractorFoundError)
	return ok
}

// NoServerFoundError is returned when an item has no server that yields a video.
type NoServerFoundError struct {
	ID  string
	Err error
}

// Error implements the error interface.
func (e *NoServerFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no usable server found for %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("no server found for %s", e.ID)
}

// Unwrap returns the joined per-server failures, if any.
func (e *NoServerFoundError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *NoServerFoundError) Is(target error) bool {
	_, ok := target.(*NoServerFoundError)
	return ok
}

// StaleSessionError means a provider's cached session (version token, domain) was rejected.
type StaleSessionError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("%s session is stale (status %d)", e.Provider, e.StatusCode)
}

// Unwrap returns the underlying status error.
func (e *StaleSessionError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *StaleSessionError) Is(target error) bool {
	_, ok := target.(*StaleSessionError)
	return ok
}

// ProviderError tags a failure with the provider and operation that produced it.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the wrapped error.
func (e *ProviderError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *ProviderError) Is(target error) bool {
	_, ok := target.(*ProviderError)
	return ok
}

// NewProviderError wraps err, returning nil when err is nil.
func NewProviderError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Provider == provider {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// IsRetryable reports whether err is a transient failure worth retrying.
// Cancellation by the caller is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return true
	}
	var de *DNSResolutionError
	if errors.As(err, &de) {
		return true
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests || se.StatusCode == http.StatusRequestTimeout
	}
	return false
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	var stale *StaleSessionError
	if errors.As(err, &stale) {
		return stale.StatusCode, true
	}
	return 0, false
}

// IsStaleSession reports whether err signals a stale provider session.
func IsStaleSession(err error) bool {
	var stale *StaleSessionError
	if errors.As(err, &stale) {
		return true
	}
	var se *HTTPStatusError
	return errors.As(err, &se) && se.IsStale()
}
