// Package osrm is the HTTP client for an OSRM-compatible routing service.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
)

const (
	// DefaultBaseURL is the public OSRM demo server, driving profile.
	DefaultBaseURL = "http://router.project-osrm.org/route/v1/driving/"
	DefaultTimeout = 10 * time.Second

	codeOK        = "Ok"
	maxBodyBytes  = 32 << 20
	maxErrorBytes = 512
)

// routeResponse is the subset of the OSRM route service answer we use.
type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
		Distance *float64        `json:"distance"`
		Duration *float64        `json:"duration"`
	} `json:"routes"`
}

// Client calls the OSRM route service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client. timeout bounds every request; zero means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Route requests the full-overview GeoJSON route for the raw pair.
func (c *Client) Route(ctx context.Context, pair routeDomain.Pair) (*routeDomain.ProviderRoute, error) {
	reqURL := c.routeURL(pair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &routeDomain.ProviderError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &routeDomain.ProviderError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	c.logger.Debug("routing provider responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	// OSRM answers 400 with a JSON body for "NoRoute"-style conditions, so
	// the body is decoded before the status check when possible.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &routeDomain.ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	var decoded routeResponse
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &routeDomain.ProviderError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", truncate(body)),
		}
		if decodeErr == nil && decoded.Code != "" && decoded.Code != codeOK {
			perr.Code = decoded.Code
			perr.Err = fmt.Errorf("%w: %s", routeDomain.ErrNoRoute, decoded.Message)
		}
		return nil, perr
	}
	if decodeErr != nil {
		return nil, &routeDomain.ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", decodeErr)}
	}

	if decoded.Code != codeOK {
		return nil, &routeDomain.ProviderError{
			StatusCode: resp.StatusCode,
			Code:       decoded.Code,
			Err:        fmt.Errorf("%w: %s", routeDomain.ErrNoRoute, decoded.Message),
		}
	}
	if len(decoded.Routes) == 0 {
		return nil, &routeDomain.ProviderError{StatusCode: resp.StatusCode, Code: decoded.Code, Err: routeDomain.ErrNoRoute}
	}

	first := decoded.Routes[0]
	if len(first.Geometry) == 0 || string(first.Geometry) == "null" {
		return nil, &routeDomain.ProviderError{StatusCode: resp.StatusCode, Err: errors.New("malformed response: route has no geometry")}
	}

	if first.Distance == nil || first.Duration == nil {
		return nil, &routeDomain.ProviderError{StatusCode: resp.StatusCode, Err: errors.New("malformed response: route has no distance/duration")}
	}

	fetched := &routeDomain.ProviderRoute{
		Geometry:        first.Geometry,
		DistanceMeters:  *first.Distance,
		DurationSeconds: *first.Duration,
	}
	if err := fetched.ValidateMeasures(); err != nil {
		return nil, &routeDomain.ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return fetched, nil
}

// routeURL builds <base><lon1>,<lat1>;<lon2>,<lat2>?overview=full&geometries=geojson.
func (c *Client) routeURL(pair routeDomain.Pair) string {
	o, d := pair.Origin(), pair.Destination()
	coords := formatFloat(o.Lon()) + "," + formatFloat(o.Lat()) + ";" +
		formatFloat(d.Lon()) + "," + formatFloat(d.Lat())
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	return c.baseURL + coords + "?" + q.Encode()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(b []byte) string {
	if len(b) > maxErrorBytes {
		return string(b[:maxErrorBytes]) + "..."
	}
	return string(b)
}
