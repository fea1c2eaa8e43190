package weather

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(rt roundTripFunc) *Client {
	return NewClient(
		WithBaseURL("https://weather.example.com"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
}

func TestCurrentBuildsForecastQuery(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/forecast" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("latitude") != "44.05" || query.Get("longitude") != "-123.09" {
			t.Fatalf("unexpected coordinates %s", r.URL.RawQuery)
		}
		if !strings.Contains(query.Get("current"), "temperature_2m") {
			t.Fatalf("unexpected current fields %q", query.Get("current"))
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body: io.NopCloser(strings.NewReader(`{"current":{
				"time":"2026-08-29T10:00",
				"temperature_2m":18.4,
				"relative_humidity_2m":61,
				"wind_speed_10m":9.7,
				"weather_code":2
			}}`)),
		}, nil
	})

	conditions, err := client.Current(context.Background(), 44.05, -123.09)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conditions.TemperatureC != 18.4 {
		t.Fatalf("expected temperature 18.4, got %v", conditions.TemperatureC)
	}
	if conditions.HumidityPct != 61 {
		t.Fatalf("expected humidity 61, got %v", conditions.HumidityPct)
	}
	if conditions.WeatherCode != 2 {
		t.Fatalf("expected weather code 2, got %d", conditions.WeatherCode)
	}
	if conditions.ObservedAt != "2026-08-29T10:00" {
		t.Fatalf("expected observation time, got %q", conditions.ObservedAt)
	}
}

func TestCurrentMapsServerErrors(t *testing.T) {
	client := newTestClient(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader("rate limited")),
		}, nil
	})

	_, err := client.Current(context.Background(), 0, 0)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected a dependency error, got %v", err)
	}
}
