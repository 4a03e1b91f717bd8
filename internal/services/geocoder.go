package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Place is the normalised result of a reverse-geocode lookup.
type Place struct {
	DisplayName string
	Street      string
	Suburb      string
	City        string
	State       string
	PostalCode  string
	Country     string
}

// GeocoderClientConfig configures the reverse-geocode proxy client.
type GeocoderClientConfig struct {
	// BaseURL of the geocoding proxy, without trailing slash.
	BaseURL string
	// Timeout bounds each lookup. Defaults to 5s.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     EventLogger
}

// GeocoderClient resolves coordinates to addresses through an external
// geocoding proxy. Lookups are bounded by the configured timeout and honour
// request-context cancellation.
type GeocoderClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     EventLogger
}

// NewGeocoderClient validates the configuration and builds the client.
func NewGeocoderClient(cfg GeocoderClientConfig) (*GeocoderClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("services: geocoder base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &GeocoderClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

type geocodeResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road       string `json:"road"`
		Suburb     string `json:"suburb"`
		City       string `json:"city"`
		Town       string `json:"town"`
		State      string `json:"state"`
		Postcode   string `json:"postcode"`
		Country    string `json:"country"`
		CountryISO string `json:"country_code"`
	} `json:"address"`
}

// Reverse resolves a coordinate pair into a Place.
func (c *GeocoderClient) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	query.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Place{}, fmt.Errorf("read geocode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger(ctx, "geocoder.lookup_failed", map[string]any{"status": resp.StatusCode})
		return Place{}, fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}

	var payload geocodeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Place{}, fmt.Errorf("decode geocode response: %w", err)
	}

	city := payload.Address.City
	if city == "" {
		city = payload.Address.Town
	}
	return Place{
		DisplayName: payload.DisplayName,
		Street:      payload.Address.Road,
		Suburb:      payload.Address.Suburb,
		City:        city,
		State:       payload.Address.State,
		PostalCode:  payload.Address.Postcode,
		Country:     payload.Address.Country,
	}, nil
}
