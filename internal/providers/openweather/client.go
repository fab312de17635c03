package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client calls the OpenWeatherMap 5-day/3-hour forecast API.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// Query selects the forecast location: either coordinates or a free-text
// place name.
type Query struct {
	Lat      float64
	Lng      float64
	Location string
}

type Forecast struct {
	City City     `json:"city"`
	List []Sample `json:"list"`
}

type City struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Sample is one 3-hour forecast slot.
type Sample struct {
	Dt      int64       `json:"dt"`
	Main    Main        `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    Wind        `json:"wind"`
	Rain    Rain        `json:"rain"`
}

type Main struct {
	Temp     float64 `json:"temp"`
	Humidity int     `json:"humidity"`
}

type Condition struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type Wind struct {
	Speed float64 `json:"speed"`
}

type Rain struct {
	ThreeHour float64 `json:"3h"`
}

type apiError struct {
	Message string `json:"message"`
}

// Forecast fetches the 5-day/3-hour forecast in metric units.
func (c *Client) Forecast(ctx context.Context, q Query) (Forecast, error) {
	if c.APIKey == "" {
		return Forecast{}, fmt.Errorf("weather api key is not set")
	}

	params := url.Values{
		"appid": {c.APIKey},
		"units": {"metric"},
	}
	if q.Location != "" {
		params.Set("q", q.Location)
	} else {
		params.Set("lat", fmt.Sprintf("%f", q.Lat))
		params.Set("lon", fmt.Sprintf("%f", q.Lng))
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org"
	}
	endpoint := baseURL + "/data/2.5/forecast?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Forecast{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return Forecast{}, fmt.Errorf("openweathermap api error: %s", apiErr.Message)
		}
		return Forecast{}, fmt.Errorf("openweathermap api error: status %d", resp.StatusCode)
	}

	var out Forecast
	if err := json.Unmarshal(raw, &out); err != nil {
		return Forecast{}, fmt.Errorf("decode forecast: %w", err)
	}
	return out, nil
}
