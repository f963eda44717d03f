// Package upstream is the client for the planning API that owns loading
// bays, plants and order planning.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	planningDomain "github.com/moplan-logistics/service-routing/internal/domain/planning"
	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

const (
	DefaultTimeout = 15 * time.Second

	pathOrigins      = "/proc/p_manCargaderos"
	pathDestinations = "/proc/p_manPlantas"
	pathPlans        = "/proc/p_planificaciones"

	actionSelectAll = "SELECT_INICIO"
	maxBodyBytes    = 64 << 20
)

type procedureRequest struct {
	Accion string `json:"accion"`
}

// Client fetches planning master data. It implements planning.Source.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. token, when set, is sent as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchOrigins returns the loading bay master ("cargaderos").
func (c *Client) FetchOrigins(ctx context.Context) ([]planningDomain.Origin, error) {
	records, err := c.call(ctx, pathOrigins)
	if err != nil {
		return nil, err
	}
	origins := make([]planningDomain.Origin, 0, len(records))
	for _, r := range records {
		origins = append(origins, planningDomain.Origin{
			Code: r.str("codigo", "codigoCargadero"),
			Name: r.str("nombre", "descripcion"),
			Lat:  r.coord(latitudeKeys, "lat"),
			Lon:  r.coord(longitudeKeys, "lon"),
			Raw:  r.raw,
		})
	}
	c.logger.Info("fetched loading bays", zap.Int("count", len(origins)))
	return origins, nil
}

// FetchDestinations returns the plant master ("plantas").
func (c *Client) FetchDestinations(ctx context.Context) ([]planningDomain.Destination, error) {
	records, err := c.call(ctx, pathDestinations)
	if err != nil {
		return nil, err
	}
	destinations := make([]planningDomain.Destination, 0, len(records))
	for _, r := range records {
		destinations = append(destinations, planningDomain.Destination{
			PlantCode: r.str("codigoPlanta", "codigo"),
			Name:      r.str("nombre", "descripcion"),
			Lat:       r.coord(latitudeKeys, "lat"),
			Lon:       r.coord(longitudeKeys, "lon"),
			Raw:       r.raw,
		})
	}
	c.logger.Info("fetched plants", zap.Int("count", len(destinations)))
	return destinations, nil
}

// FetchPlans returns the order planning rows ("planificaciones").
func (c *Client) FetchPlans(ctx context.Context) ([]planningDomain.Plan, error) {
	records, err := c.call(ctx, pathPlans)
	if err != nil {
		return nil, err
	}
	plans := make([]planningDomain.Plan, 0, len(records))
	for _, r := range records {
		plans = append(plans, planningDomain.Plan{
			Order:          r.str("pedido"),
			PlantCode:      r.str("codigoPlanta"),
			LoadingBayCode: r.str("codigoCargadero"),
			Raw:            r.raw,
		})
	}
	c.logger.Info("fetched plans", zap.Int("count", len(plans)))
	return plans, nil
}

// call runs a stored-procedure endpoint and decodes the returned array.
func (c *Client) call(ctx context.Context, path string) ([]record, error) {
	body, err := json.Marshal(procedureRequest{Accion: actionSelectAll})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.NewUnavailableError("planning API request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.NewUnavailableError(
			"planning API request failed",
			fmt.Errorf("%s returned status %d", path, resp.StatusCode),
		)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.NewUnavailableError("planning API read failed", err)
	}

	records, err := decodeRecords(payload)
	if err != nil {
		return nil, apperr.NewUnavailableError("planning API returned malformed data", fmt.Errorf("%s: %w", path, err))
	}
	return records, nil
}
