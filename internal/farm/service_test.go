package farm

import (
	"context"
	"errors"
	"testing"

	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
	"github.com/jalvarez-dev/farmline-storefront/pkg/weather"
)

type stubProfiles struct {
	profile *backend.FarmProfile
	err     error
}

func (s *stubProfiles) GetFarmProfile(context.Context, int64) (*backend.FarmProfile, error) {
	return s.profile, s.err
}

type stubWeather struct {
	conditions *weather.Conditions
	err        error
	calls      int
}

func (s *stubWeather) Current(context.Context, float64, float64) (*weather.Conditions, error) {
	s.calls++
	return s.conditions, s.err
}

func hilltop() *backend.FarmProfile {
	return &backend.FarmProfile{ID: 3, Name: "Hilltop Farm", Latitude: 44.05, Longitude: -123.09}
}

func TestWeatherServesLiveConditions(t *testing.T) {
	conditions := &weather.Conditions{TemperatureC: 18.4, WeatherCode: 2}
	service, err := NewService(ServiceParams{
		Profiles: &stubProfiles{profile: hilltop()},
		Weather:  &stubWeather{conditions: conditions},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := service.Weather(context.Background(), 3)

	if report.Source != SourceLive {
		t.Fatalf("expected live source, got %q", report.Source)
	}
	if report.FarmName != "Hilltop Farm" || report.Latitude != 44.05 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Conditions.TemperatureC != 18.4 {
		t.Fatalf("expected live temperature, got %v", report.Conditions.TemperatureC)
	}
}

func TestWeatherDegradesToDemoOnProfileFailure(t *testing.T) {
	service, err := NewService(ServiceParams{
		Profiles: &stubProfiles{err: errors.New("backend unavailable")},
		Weather:  &stubWeather{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := service.Weather(context.Background(), 3)

	if report.Source != SourceDemo {
		t.Fatalf("expected demo source, got %q", report.Source)
	}
	if report.FarmID != 3 {
		t.Fatalf("expected the requested farm id, got %d", report.FarmID)
	}
	if report.Conditions.TemperatureC == 0 {
		t.Fatal("expected synthetic conditions to be populated")
	}
}

func TestWeatherDegradesToDemoOnLookupFailure(t *testing.T) {
	service, err := NewService(ServiceParams{
		Profiles: &stubProfiles{profile: hilltop()},
		Weather:  &stubWeather{err: errors.New("rate limited")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := service.Weather(context.Background(), 3)

	if report.Source != SourceDemo {
		t.Fatalf("expected demo source, got %q", report.Source)
	}
	// Known coordinates are still attached to the demo payload.
	if report.FarmName != "Hilltop Farm" || report.Latitude != 44.05 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestDemoConditionsAreStablePerFarm(t *testing.T) {
	first := demoReport(3, nil)
	second := demoReport(3, nil)
	if first.Conditions != second.Conditions {
		t.Fatalf("expected deterministic demo conditions, got %+v vs %+v", first.Conditions, second.Conditions)
	}
	other := demoReport(4, nil)
	if first.Conditions == other.Conditions {
		t.Fatal("expected demo conditions to vary by farm")
	}
}
