package cst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/snowtistics-etl/internal/observability"
	"golang.org/x/time/rate"
)

const (
	nameMatchPath = "/cst/locations/name-match"
	historyPath   = "/snowtistics/history/events"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 32 << 20
)

// ErrMalformedResponse is returned when a name-match response lacks data.locations.
var ErrMalformedResponse = errors.New("malformed CST response")

// Client implements domain.LocationResolver and domain.HistoryFetcher against the CST API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a CST API client. A ratePerSecond of 0 disables rate limiting.
func NewClient(baseURL, apiKey string, timeout time.Duration, ratePerSecond float64, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: newLimiter(ratePerSecond),
		metrics: metrics,
		logger:  logger,
	}
}

func newLimiter(ratePerSecond float64) *rate.Limiter {
	if ratePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), 1)
}

// Resolve queries the name-match endpoint. Only non-empty query fields are sent.
func (c *Client) Resolve(ctx context.Context, q domain.LocationQuery) ([]domain.ResolvedLocation, error) {
	params := url.Values{}
	if q.City != "" {
		params.Set("city", q.City)
	}
	if q.State != "" {
		params.Set("state", q.State)
	}
	if q.Zipcode != "" {
		params.Set("zipcode", q.Zipcode)
	}

	u := c.baseURL + nameMatchPath
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, err := c.doRequest(req, "name_match")
	if err != nil {
		return nil, err
	}

	var resp nameMatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode name-match response: %v", ErrMalformedResponse, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if len(resp.Data.Locations) == 0 {
		return nil, fmt.Errorf("%w: missing data.locations", ErrMalformedResponse)
	}

	var locations []domain.ResolvedLocation
	if err := json.Unmarshal(resp.Data.Locations, &locations); err != nil {
		return nil, fmt.Errorf("%w: decode data.locations: %v", ErrMalformedResponse, err)
	}

	c.logger.Debug("name-match lookup", "query", q.String(), "candidates", len(locations))
	return locations, nil
}

// FetchHistory queries the history endpoint for one CST location. The API key
// travels as a query parameter on this endpoint.
func (c *Client) FetchHistory(ctx context.Context, locationID int64, startSeason, endSeason int) (domain.HistoricalBundle, error) {
	params := url.Values{
		"api_key":      {c.apiKey},
		"location_id":  {strconv.FormatInt(locationID, 10)},
		"start_season": {strconv.Itoa(startSeason)},
		"end_season":   {strconv.Itoa(endSeason)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+historyPath+"?"+params.Encode(), nil)
	if err != nil {
		return domain.HistoricalBundle{}, fmt.Errorf("create request: %w", err)
	}

	body, err := c.doRequest(req, "history")
	if err != nil {
		c.metrics.HistoryRequests.WithLabelValues("error").Inc()
		return domain.HistoricalBundle{}, err
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.metrics.HistoryRequests.WithLabelValues("error").Inc()
		return domain.HistoricalBundle{}, fmt.Errorf("decode history response: %w", err)
	}

	bundle, err := domain.ParseHistoricalBundle(resp.Data)
	if err != nil {
		c.metrics.HistoryRequests.WithLabelValues("error").Inc()
		return domain.HistoricalBundle{}, err
	}

	c.metrics.HistoryRequests.WithLabelValues("success").Inc()
	c.logger.Debug("history fetched", "location_id", locationID,
		"events", len(bundle.Events), "sources", len(bundle.Sources))
	return bundle, nil
}

func (c *Client) doRequest(req *http.Request, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("CST API error: %s: status %d: %s", endpoint, resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

// redact strips the request URL from transport errors so the api_key query
// parameter never reaches the logs.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// CST API response envelopes.

type nameMatchResponse struct {
	Data *struct {
		Locations json.RawMessage `json:"locations"`
	} `json:"data"`
}

type historyResponse struct {
	Data json.RawMessage `json:"data"`
}
