package farm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
	"github.com/jalvarez-dev/farmline-storefront/pkg/redis"
	"github.com/jalvarez-dev/farmline-storefront/pkg/weather"
)

type profileLoader interface {
	GetFarmProfile(ctx context.Context, id int64) (*backend.FarmProfile, error)
}

type conditionsLoader interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Conditions, error)
}

// Report sources, in descending freshness.
const (
	SourceLive  = "live"
	SourceCache = "cache"
	SourceDemo  = "demo"
)

// Report is the farm weather widget payload.
type Report struct {
	FarmID     int64              `json:"farm_id"`
	FarmName   string             `json:"farm_name"`
	Latitude   float64            `json:"latitude"`
	Longitude  float64            `json:"longitude"`
	Conditions weather.Conditions `json:"conditions"`
	Source     string             `json:"source"`
}

// ServiceParams configures the farm service.
type ServiceParams struct {
	Profiles profileLoader
	Weather  conditionsLoader
	Cache    *redis.Client
	CacheTTL time.Duration
	Logger   *logger.Logger
}

// Service resolves farm coordinates and current weather for the profile
// page. Both upstreams are read-only; any failure degrades to synthetic
// demo conditions rather than an error.
type Service struct {
	profiles profileLoader
	weather  conditionsLoader
	cache    *redis.Client
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService builds the farm service. Cache is optional.
func NewService(params ServiceParams) (*Service, error) {
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile loader required")
	}
	if params.Weather == nil {
		return nil, fmt.Errorf("weather client required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		profiles: params.Profiles,
		weather:  params.Weather,
		cache:    params.Cache,
		cacheTTL: ttl,
		logg:     params.Logger,
	}, nil
}

// Weather returns the current conditions at the farm's coordinates, serving
// from cache when fresh and falling back to demo data on any upstream
// failure. It never returns an error for upstream trouble.
func (s *Service) Weather(ctx context.Context, farmID int64) Report {
	if cached, ok := s.fromCache(ctx, farmID); ok {
		return cached
	}

	var errs error
	profile, err := s.profiles.GetFarmProfile(ctx, farmID)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("farm profile: %w", err))
	}

	var conditions *weather.Conditions
	if profile != nil {
		conditions, err = s.weather.Current(ctx, profile.Latitude, profile.Longitude)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("weather lookup: %w", err))
		}
	}

	if errs != nil || conditions == nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithFarmID(ctx, farmID), "weather widget degraded to demo data", errs)
		}
		return demoReport(farmID, profile)
	}

	report := Report{
		FarmID:     profile.ID,
		FarmName:   profile.Name,
		Latitude:   profile.Latitude,
		Longitude:  profile.Longitude,
		Conditions: *conditions,
		Source:     SourceLive,
	}
	s.toCache(ctx, farmID, report)
	return report
}

func (s *Service) fromCache(ctx context.Context, farmID int64) (Report, bool) {
	if s.cache == nil {
		return Report{}, false
	}
	raw, err := s.cache.Get(ctx, s.cache.WeatherKey(strconv.FormatInt(farmID, 10)))
	if err != nil {
		return Report{}, false
	}
	var report Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return Report{}, false
	}
	report.Source = SourceCache
	return report, true
}

func (s *Service) toCache(ctx context.Context, farmID int64, report Report) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	key := s.cache.WeatherKey(strconv.FormatInt(farmID, 10))
	if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFarmID(ctx, farmID), "weather cache write failed")
	}
}

// demoReport synthesizes stable conditions from the farm id so the widget
// renders something plausible while upstreams are down.
func demoReport(farmID int64, profile *backend.FarmProfile) Report {
	report := Report{
		FarmID:   farmID,
		FarmName: "Demo Farm",
		Source:   SourceDemo,
		Conditions: weather.Conditions{
			TemperatureC: float64(16 + farmID%8),
			HumidityPct:  float64(55 + farmID%20),
			WindSpeedKMH: float64(5 + farmID%12),
			WeatherCode:  int(farmID % 4),
		},
	}
	if profile != nil {
		report.FarmName = profile.Name
		report.Latitude = profile.Latitude
		report.Longitude = profile.Longitude
	}
	return report
}
