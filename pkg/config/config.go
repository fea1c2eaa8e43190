package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FARMLINE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Persistence drivers accepted by LocalStoreConfig.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

type Config struct {
	App        AppConfig
	Backend    BackendConfig
	Weather    WeatherConfig
	LocalStore LocalStoreConfig
	Redis      RedisConfig
	Cart       CartConfig
	Flags      FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.LocalStore.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FARMLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"FARMLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FARMLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BackendConfig struct {
	BaseURL string        `envconfig:"FARMLINE_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"FARMLINE_BACKEND_TIMEOUT" default:"10s"`
}

type WeatherConfig struct {
	BaseURL  string        `envconfig:"FARMLINE_WEATHER_BASE_URL" default:"https://api.open-meteo.com"`
	Timeout  time.Duration `envconfig:"FARMLINE_WEATHER_TIMEOUT" default:"5s"`
	CacheTTL time.Duration `envconfig:"FARMLINE_WEATHER_CACHE_TTL" default:"10m"`
}

// LocalStoreConfig selects the durable backend for the cart mirror.
type LocalStoreConfig struct {
	Driver     string `envconfig:"FARMLINE_STORE_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"FARMLINE_STORE_SQLITE_PATH" default:"farmline-cart.db"`
	RedisKey   string `envconfig:"FARMLINE_STORE_REDIS_KEY" default:"cart"`
}

func (l *LocalStoreConfig) validate() error {
	driver := strings.ToLower(strings.TrimSpace(l.Driver))
	switch driver {
	case StoreDriverSQLite, StoreDriverRedis, StoreDriverMemory:
		l.Driver = driver
		return nil
	}
	return fmt.Errorf("unsupported store driver %q", l.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMLINE_REDIS_URL"`
	Address      string        `envconfig:"FARMLINE_REDIS_ADDR"`
	Password     string        `envconfig:"FARMLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type CartConfig struct {
	SettleDelay    time.Duration `envconfig:"FARMLINE_CART_SETTLE_DELAY" default:"150ms"`
	DebounceWindow time.Duration `envconfig:"FARMLINE_CART_DEBOUNCE_WINDOW" default:"500ms"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FARMLINE_AUTO_MIGRATE" default:"false"`
}
