package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FARMLINE_APP_ENV", "dev")
	t.Setenv("FARMLINE_APP_PORT", "8080")
	t.Setenv("FARMLINE_BACKEND_BASE_URL", "https://market.example.com")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.App.IsDev() {
		t.Fatal("expected dev environment")
	}
	if cfg.LocalStore.Driver != StoreDriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.LocalStore.Driver)
	}
	if cfg.Cart.SettleDelay != 150*time.Millisecond {
		t.Fatalf("expected default settle delay, got %s", cfg.Cart.SettleDelay)
	}
	if cfg.Cart.DebounceWindow != 500*time.Millisecond {
		t.Fatalf("expected default debounce window, got %s", cfg.Cart.DebounceWindow)
	}
	if cfg.Redis.Enabled() {
		t.Fatal("expected redis to be disabled without an endpoint")
	}
}

func TestLoadNormalizesStoreDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FARMLINE_STORE_DRIVER", "  Redis ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LocalStore.Driver != StoreDriverRedis {
		t.Fatalf("expected normalized redis driver, got %q", cfg.LocalStore.Driver)
	}
}

func TestLoadRejectsUnknownStoreDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FARMLINE_STORE_DRIVER", "papyrus")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown store driver")
	}
}

func TestLoadRequiresBackendURL(t *testing.T) {
	t.Setenv("FARMLINE_APP_ENV", "dev")
	t.Setenv("FARMLINE_APP_PORT", "8080")
	t.Setenv("FARMLINE_BACKEND_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when the backend url is missing")
	}
}
