package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client validates free-text locations against the Nominatim search API,
// bounded to a configured viewbox.
type Client struct {
	BaseURL   string
	UserAgent string

	// Viewbox is "minLon,minLat,maxLon,maxLat"; results outside it are
	// excluded (bounded search).
	Viewbox string
	HTTP    *http.Client
}

// Result is the outcome of a bounded forward geocode.
type Result struct {
	Valid       bool    `json:"isValid"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	Message     string  `json:"message,omitempty"`
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Validate geocodes a location string. A location that resolves nowhere
// inside the viewbox is a valid, non-error "not found" result.
func (c *Client) Validate(ctx context.Context, location string) (Result, error) {
	params := url.Values{
		"q":            {location},
		"format":       {"json"},
		"countrycodes": {"in"},
		"viewbox":      {c.Viewbox},
		"bounded":      {"1"},
		"limit":        {"1"},
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	endpoint := baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, err
	}
	// Nominatim requires an identifying User-Agent.
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Result{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(places) == 0 {
		return Result{
			Valid:   false,
			Message: "Could not find this location within Tamil Nadu. Please be more specific.",
		}, nil
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}

	return Result{Valid: true, Lat: lat, Lng: lng, DisplayName: p.DisplayName}, nil
}
