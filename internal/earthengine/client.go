// Package earthengine builds lazy Earth Engine expressions and evaluates them
// through the Earth Engine REST API.
package earthengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	"github.com/robert-malhotra/floodsync-api/pkg/geojson"
)

// DefaultBaseURL is the public Earth Engine REST endpoint.
const DefaultBaseURL = "https://earthengine.googleapis.com"

// Operation names reported to observers.
const (
	OpComputeValue    = "compute_value"
	OpComputeFeatures = "compute_features"
	OpCreateMap       = "create_map"
)

// Observer receives the outcome of every REST call.
type Observer func(op string, elapsed time.Duration, err error)

// Client handles communication with the Earth Engine REST API
type Client struct {
	baseURL    string
	project    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	observer   Observer
	logger     *slog.Logger
}

// NewClient creates a new Earth Engine client for the given cloud project.
func NewClient(baseURL, project string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		project: project,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithTokenSource authenticates every request with tokens from ts.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	c.httpClient.Transport = &oauth2.Transport{
		Source: oauth2.ReuseTokenSource(nil, ts),
		Base:   c.httpClient.Transport,
	}
	return c
}

// WithBreaker routes every request through cb. A nil breaker is ignored.
func (c *Client) WithBreaker(cb *gobreaker.CircuitBreaker[[]byte]) *Client {
	c.breaker = cb
	return c
}

// WithObserver registers a callback invoked after every REST call.
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// Project returns the cloud project requests are billed to.
func (c *Client) Project() string {
	return c.project
}

// ComputeValue evaluates v and returns the raw JSON result.
func (c *Client) ComputeValue(ctx context.Context, v Computable) (json.RawMessage, error) {
	expr, err := Encode(v.Node())
	if err != nil {
		return nil, fmt.Errorf("failed to encode expression: %w", err)
	}

	var resp computeValueResponse
	if err := c.post(ctx, OpComputeValue, "value:compute", computeValueRequest{Expression: expr}, &resp); err != nil {
		return nil, err
	}

	return resp.Result, nil
}

// ComputeNumber evaluates v and decodes the result as a number. A null
// result yields ok=false.
func (c *Client) ComputeNumber(ctx context.Context, v Computable) (value float64, ok bool, err error) {
	raw, err := c.ComputeValue(ctx, v)
	if err != nil {
		return 0, false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false, fmt.Errorf("failed to decode numeric result: %w", err)
	}
	return value, true, nil
}

// ComputeFeatures evaluates a feature collection, following page tokens until
// every feature has been fetched.
func (c *Client) ComputeFeatures(ctx context.Context, fc Computable) (*geojson.FeatureCollection, error) {
	expr, err := Encode(fc.Node())
	if err != nil {
		return nil, fmt.Errorf("failed to encode expression: %w", err)
	}

	features := make([]*geojson.Feature, 0)
	seen := make(map[string]bool)
	req := computeFeaturesRequest{Expression: expr}

	for page := 1; ; page++ {
		var resp computeFeaturesResponse
		if err := c.post(ctx, OpComputeFeatures, "table:computeFeatures", req, &resp); err != nil {
			return nil, err
		}
		features = append(features, resp.Features...)

		c.logger.DebugContext(ctx, "fetched feature page",
			slog.Int("page", page),
			slog.Int("page_features", len(resp.Features)),
		)

		if resp.NextPageToken == "" {
			break
		}
		if seen[resp.NextPageToken] {
			return nil, fmt.Errorf("Earth Engine repeated page token %q", resp.NextPageToken)
		}
		seen[resp.NextPageToken] = true
		req.PageToken = resp.NextPageToken
	}

	return geojson.NewFeatureCollection(features), nil
}

// CreateMap renders an image and returns the XYZ tile template serving it.
func (c *Client) CreateMap(ctx context.Context, img Computable, vis VisualizationOptions) (*MapID, error) {
	expr, err := Encode(img.Node())
	if err != nil {
		return nil, fmt.Errorf("failed to encode expression: %w", err)
	}

	body := createMapRequest{
		Expression:           expr,
		FileFormat:           "AUTO_JPEG_PNG",
		VisualizationOptions: &vis,
	}

	var resp createMapResponse
	if err := c.post(ctx, OpCreateMap, "maps", body, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("Earth Engine returned a map without a name")
	}

	return &MapID{
		Name:    resp.Name,
		TileURL: fmt.Sprintf("%s/v1/%s/tiles/{z}/{x}/{y}", c.baseURL, resp.Name),
	}, nil
}

// Verify evaluates a trivial expression to confirm that credentials and the
// project are usable.
func (c *Client) Verify(ctx context.Context) error {
	raw, err := c.ComputeValue(ctx, Number{Constant(1)})
	if err != nil {
		return fmt.Errorf("Earth Engine verification failed: %w", err)
	}
	if string(raw) != "1" {
		return fmt.Errorf("Earth Engine verification returned unexpected result %s", raw)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/%s", c.baseURL, c.project, method)

	start := time.Now()
	data, err := c.execute(ctx, endpoint, payload)
	if c.observer != nil {
		c.observer(op, time.Since(start), err)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode Earth Engine response",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to decode Earth Engine response: %w", err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	if c.breaker == nil {
		return c.do(ctx, endpoint, payload)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.WarnContext(ctx, "Earth Engine request rejected by circuit breaker",
			slog.String("state", StateName(c.breaker.State())),
		)
		return nil, fmt.Errorf("Earth Engine unavailable: %w", err)
	}
	return data, err
}

func (c *Client) do(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	c.logger.DebugContext(ctx, "executing Earth Engine request",
		slog.String("url", endpoint),
		slog.Int("payload_bytes", len(payload)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "floodsync-api/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Earth Engine request failed",
			slog.String("error", err.Error()),
			slog.String("url", endpoint),
		)
		return nil, fmt.Errorf("Earth Engine request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Earth Engine response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp.StatusCode, body)
		c.logger.ErrorContext(ctx, "Earth Engine returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("status", apiErr.Status),
			slog.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	return body, nil
}
