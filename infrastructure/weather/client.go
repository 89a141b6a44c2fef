package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skywager/domain/entities"
	"skywager/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const (
	endpointCurrent  = "weather"
	endpointForecast = "forecast"
)

// Client talks to an OpenWeatherMap-compatible API
type Client struct {
	baseURL    string
	apiKey     string
	units      string
	httpClient *http.Client
}

// NewClient creates a weather client. An empty units value means metric.
func NewClient(baseURL, apiKey, units string, timeout time.Duration) *Client {
	if units == "" {
		units = "metric"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		units:      units,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}

type cloudBlock struct {
	All float64 `json:"all"`
}

type volumeBlock struct {
	OneHour   float64 `json:"1h"`
	ThreeHour float64 `json:"3h"`
}

// amount prefers the hourly figure and falls back to the three hour one
func (v *volumeBlock) amount() float64 {
	if v == nil {
		return 0
	}
	if v.OneHour > 0 {
		return v.OneHour
	}
	return v.ThreeHour
}

type observation struct {
	Dt      int64        `json:"dt"`
	Name    string       `json:"name"`
	Weather []condition  `json:"weather"`
	Main    mainBlock    `json:"main"`
	Wind    windBlock    `json:"wind"`
	Clouds  cloudBlock   `json:"clouds"`
	Rain    *volumeBlock `json:"rain"`
	Snow    *volumeBlock `json:"snow"`
	Pop     float64      `json:"pop"`
}

type forecastResponse struct {
	List []observation `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// Current returns the latest observation for a city
func (c *Client) Current(ctx context.Context, city string) (*entities.WeatherSnapshot, error) {
	var obs observation
	if err := c.get(ctx, endpointCurrent, city, &obs); err != nil {
		return nil, err
	}

	snapshot := toSnapshot(city, obs)
	log.WithFields(log.Fields{
		"city":        city,
		"temperature": snapshot.Temperature,
		"conditions":  snapshot.Conditions,
	}).Debug("Fetched current weather")
	return snapshot, nil
}

// Forecast returns the forecast step closest to at
func (c *Client) Forecast(ctx context.Context, city string, at time.Time) (*entities.WeatherSnapshot, error) {
	var resp forecastResponse
	if err := c.get(ctx, endpointForecast, city, &resp); err != nil {
		return nil, err
	}
	if len(resp.List) == 0 {
		return nil, fmt.Errorf("weather forecast for %s has no entries", city)
	}

	nearest := resp.List[0]
	best := absDuration(time.Unix(nearest.Dt, 0).Sub(at))
	for _, entry := range resp.List[1:] {
		if d := absDuration(time.Unix(entry.Dt, 0).Sub(at)); d < best {
			nearest, best = entry, d
		}
	}

	snapshot := toSnapshot(city, nearest)
	snapshot.IsForecast = true
	snapshot.PrecipitationProbability = nearest.Pop
	return snapshot, nil
}

func (c *Client) get(ctx context.Context, endpoint, city string, out any) (err error) {
	defer func() {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeError
		}
		observability.GetMetrics().RecordWeatherRequest(endpoint, outcome)
	}()

	query := url.Values{}
	query.Set("q", city)
	query.Set("units", c.units)
	query.Set("appid", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch weather for %s: %w", city, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather provider returned %d for %s: %s", resp.StatusCode, city, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode weather response for %s: %w", city, err)
	}
	return nil
}

func toSnapshot(city string, obs observation) *entities.WeatherSnapshot {
	conditions := make([]string, 0, len(obs.Weather)*2)
	for _, w := range obs.Weather {
		if w.Main != "" {
			conditions = append(conditions, w.Main)
		}
		if w.Description != "" {
			conditions = append(conditions, w.Description)
		}
	}

	name := obs.Name
	if name == "" {
		name = city
	}

	observedAt := time.Now().UTC()
	if obs.Dt > 0 {
		observedAt = time.Unix(obs.Dt, 0).UTC()
	}

	return &entities.WeatherSnapshot{
		City:          name,
		Temperature:   obs.Main.Temp,
		Humidity:      obs.Main.Humidity,
		Pressure:      obs.Main.Pressure,
		WindSpeed:     obs.Wind.Speed,
		Clouds:        obs.Clouds.All,
		Precipitation: obs.Rain.amount() + obs.Snow.amount(),
		Conditions:    conditions,
		ObservedAt:    observedAt,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
