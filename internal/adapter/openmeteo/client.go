package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/region-colorizer/internal/domain"
	"github.com/couchcryptid/region-colorizer/internal/observability"
)

// Client implements domain.SeriesFetcher against the Open-Meteo historical archive API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	field      string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an archive client requesting the given hourly field.
func NewClient(baseURL, field string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		field:   field,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchHourly requests hourly values of the configured field for the location
// between two calendar dates (inclusive).
func (c *Client) FetchHourly(ctx context.Context, lat, lng float64, dayStart, dayEnd string) (domain.Series, error) {
	params := url.Values{
		"latitude":   {formatCoord(lat)},
		"longitude":  {formatCoord(lng)},
		"start_date": {dayStart},
		"end_date":   {dayEnd},
		"hourly":     {c.field},
	}

	start := time.Now()
	series, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.ArchiveAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ArchiveRequests.WithLabelValues("error").Inc()
		return domain.Series{}, err
	}
	c.metrics.ArchiveRequests.WithLabelValues("success").Inc()
	c.logger.Debug("archive series fetched",
		"lat", lat, "lng", lng, "start", dayStart, "end", dayEnd, "samples", len(series.Values))
	return series, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Series{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Series{}, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Series{}, fmt.Errorf("archive API error: status %d: %s", resp.StatusCode, body)
	}

	var archiveResp response
	if err := json.NewDecoder(resp.Body).Decode(&archiveResp); err != nil {
		return domain.Series{}, fmt.Errorf("decode response: %w", err)
	}
	return archiveResp.series(c.field)
}

// formatCoord renders the exact float value; coordinates are never rounded.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Open-Meteo archive response types.

type response struct {
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Hourly    map[string]json.RawMessage `json:"hourly"`
}

func (r response) series(field string) (domain.Series, error) {
	rawValues, ok := r.Hourly[field]
	if !ok {
		return domain.Series{}, fmt.Errorf("response missing hourly field %q", field)
	}

	var samples []*float64
	if err := json.Unmarshal(rawValues, &samples); err != nil {
		return domain.Series{}, fmt.Errorf("decode hourly %s: %w", field, err)
	}

	var times []string
	if rawTimes, ok := r.Hourly["time"]; ok {
		if err := json.Unmarshal(rawTimes, &times); err != nil {
			return domain.Series{}, fmt.Errorf("decode hourly time: %w", err)
		}
	}
	if len(times) != 0 && len(times) != len(samples) {
		return domain.Series{}, errors.New("hourly time and value arrays differ in length")
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		if s == nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = *s
	}

	return domain.Series{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Times:     times,
		Values:    values,
	}, nil
}
