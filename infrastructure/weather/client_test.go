package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const currentBody = `{
	"dt": 1784052000,
	"name": "Madrid",
	"weather": [{"main": "Rain", "description": "light rain"}],
	"main": {"temp": 19.4, "humidity": 81, "pressure": 1009},
	"wind": {"speed": 5.2},
	"clouds": {"all": 90},
	"rain": {"1h": 0.8}
}`

const forecastBody = `{
	"city": {"name": "Madrid"},
	"list": [
		{"dt": 1784052000, "main": {"temp": 18.0}, "weather": [{"main": "Clouds", "description": "overcast clouds"}], "pop": 0.1},
		{"dt": 1784062800, "main": {"temp": 21.5}, "weather": [{"main": "Rain", "description": "moderate rain"}], "rain": {"3h": 2.4}, "pop": 0.8},
		{"dt": 1784073600, "main": {"temp": 16.0}, "weather": [{"main": "Clear", "description": "clear sky"}], "pop": 0}
	]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		if r.URL.Query().Get("q") == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}

		switch r.URL.Path {
		case "/weather":
			_, _ = w.Write([]byte(currentBody))
		case "/forecast":
			_, _ = w.Write([]byte(forecastBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Current(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL+"/", "secret", "", 5*time.Second)

	snapshot, err := client.Current(context.Background(), "Madrid")
	require.NoError(t, err)

	assert.Equal(t, "Madrid", snapshot.City)
	assert.Equal(t, 19.4, snapshot.Temperature)
	assert.Equal(t, 81.0, snapshot.Humidity)
	assert.Equal(t, 1009.0, snapshot.Pressure)
	assert.Equal(t, 5.2, snapshot.WindSpeed)
	assert.Equal(t, 90.0, snapshot.Clouds)
	assert.Equal(t, 0.8, snapshot.Precipitation)
	assert.Equal(t, []string{"Rain", "light rain"}, snapshot.Conditions)
	assert.Equal(t, time.Unix(1784052000, 0).UTC(), snapshot.ObservedAt)
	assert.False(t, snapshot.IsForecast)
}

func TestClient_ForecastPicksNearestStep(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL, "secret", "metric", 5*time.Second)

	// 20 minutes after the second step
	at := time.Unix(1784062800, 0).Add(20 * time.Minute)
	snapshot, err := client.Forecast(context.Background(), "Madrid", at)
	require.NoError(t, err)

	assert.True(t, snapshot.IsForecast)
	assert.Equal(t, 21.5, snapshot.Temperature)
	assert.Equal(t, 2.4, snapshot.Precipitation)
	assert.Equal(t, 0.8, snapshot.PrecipitationProbability)
	assert.Contains(t, snapshot.ConditionText(), "moderate rain")
}

func TestClient_Errors(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL, "secret", "metric", 5*time.Second)

	t.Run("unknown city", func(t *testing.T) {
		_, err := client.Current(context.Background(), "Atlantis")
		assert.ErrorContains(t, err, "returned 404")
	})

	t.Run("bad payload", func(t *testing.T) {
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"main":`))
		}))
		defer broken.Close()

		_, err := NewClient(broken.URL, "secret", "metric", time.Second).Current(context.Background(), "Madrid")
		assert.ErrorContains(t, err, "failed to decode")
	})

	t.Run("empty forecast", func(t *testing.T) {
		empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"list":[]}`))
		}))
		defer empty.Close()

		_, err := NewClient(empty.URL, "secret", "metric", time.Second).Forecast(context.Background(), "Madrid", time.Now())
		assert.ErrorContains(t, err, "no entries")
	})
}
