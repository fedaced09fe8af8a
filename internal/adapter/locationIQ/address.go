// Package locationIQ is a LocationIQ geocoding client.
package locationIQ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/metrics"
)

var (
	ErrLocationNotFound = errors.New("location not found")
)

const defaultBaseURL = "https://us1.locationiq.com"

type LocationIQClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	backoff time.Duration
}

// New creates a client. An empty baseURL selects the public US endpoint.
func New(apiKey, baseURL string, timeout time.Duration) *LocationIQClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &LocationIQClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		backoff: 200 * time.Millisecond,
	}
}

type AddressPayload struct {
	Address string `json:"display_name"`
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// ReverseGeocode returns a human readable address for c.
func (c *LocationIQClient) ReverseGeocode(ctx context.Context, coord models.Coordinate) (_ string, err error) {
	const op = "LocationIQClient.ReverseGeocode"
	defer func() { metrics.RecordGeocode("reverse", err) }()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.get(ctx, "/v1/reverse", map[string]string{
			"lat": strconv.FormatFloat(coord.Latitude, 'f', -1, 64),
			"lon": strconv.FormatFloat(coord.Longitude, 'f', -1, 64),
		})
	})
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to make request to LocationIQ: %w", op, err))
	}
	defer resp.Body.Close()

	var payload AddressPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		ctx = wrap.WithAction(ctx, "decode_address_payload")
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to decode data from LocationIQ response: %w", op, err))
	}

	if payload.Address == "" {
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, ErrLocationNotFound))
	}

	return payload.Address, nil
}

// ForwardGeocode returns the candidate coordinates for address, best match first.
// An address LocationIQ cannot place yields an empty slice and no error.
func (c *LocationIQClient) ForwardGeocode(ctx context.Context, address string) (_ []models.Coordinate, err error) {
	const op = "LocationIQClient.ForwardGeocode"
	ctx = wrap.WithAction(ctx, "locationiq_forward_geocode")
	defer func() { metrics.RecordGeocode("forward", err) }()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.get(ctx, "/v1/search", map[string]string{"q": address})
	})
	if err != nil {
		var he *httpStatusError
		if errors.As(err, &he) && he.Code == http.StatusNotFound {
			return []models.Coordinate{}, nil
		}
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: failed to make request to LocationIQ: %w", op, err))
	}
	defer resp.Body.Close()

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: failed to decode data from LocationIQ response: %w", op, err))
	}

	out := make([]models.Coordinate, 0, len(results))
	for _, r := range results {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		out = append(out, models.Coordinate{Latitude: lat, Longitude: lon})
	}

	return out, nil
}
