package route

import (
	"errors"
	"fmt"

	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

var (
	// ErrCacheMiss is returned by CacheRepository.Lookup when no row matches.
	ErrCacheMiss = errors.New("route not cached")

	// ErrNoRoute means the provider answered but found no route.
	ErrNoRoute = errors.New("no route between the given points")
)

// StoreError is a failure of the cache store. It is never a cache miss.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("route cache %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Kind reports the store as unavailable.
func (e *StoreError) Kind() apperr.Kind { return apperr.KindUnavailable }

// ProviderError is a failure to obtain a route from the routing provider:
// transport errors, timeouts, non-2xx statuses, malformed bodies and
// "no route" answers.
type ProviderError struct {
	StatusCode int    // HTTP status, 0 when no response was received
	Code       string // provider "code" field when one was returned
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("routing provider returned %q: %v", e.Code, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("routing provider status %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("routing provider: %v", e.Err)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Kind reports provider failures as "no route".
func (e *ProviderError) Kind() apperr.Kind { return apperr.KindNoRoute }
