package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jalvarez-dev/farmline-storefront/api/controllers"
	"github.com/jalvarez-dev/farmline-storefront/api/routes"
	"github.com/jalvarez-dev/farmline-storefront/internal/cart"
	"github.com/jalvarez-dev/farmline-storefront/internal/cartpage"
	"github.com/jalvarez-dev/farmline-storefront/internal/catalog"
	"github.com/jalvarez-dev/farmline-storefront/internal/farm"
	"github.com/jalvarez-dev/farmline-storefront/internal/orders"
	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
	"github.com/jalvarez-dev/farmline-storefront/pkg/config"
	"github.com/jalvarez-dev/farmline-storefront/pkg/localdb"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
	"github.com/jalvarez-dev/farmline-storefront/pkg/metrics"
	"github.com/jalvarez-dev/farmline-storefront/pkg/migrate"
	"github.com/jalvarez-dev/farmline-storefront/pkg/redis"
	"github.com/jalvarez-dev/farmline-storefront/pkg/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logg := logger.New(logger.Options{
		ServiceName: "farmline-storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry)

	var (
		db        *localdb.Client
		rdb       *redis.Client
		persister cart.Persister
		pingers   []localdb.Pinger
	)

	switch cfg.LocalStore.Driver {
	case config.StoreDriverSQLite:
		db, err = localdb.New(ctx, cfg.LocalStore, logg)
		if err != nil {
			return err
		}
		defer db.Close()
		pingers = append(pingers, db)

		if err := migrate.MaybeRunDev(ctx, cfg, logg, db); err != nil {
			return err
		}

		persister, err = cart.NewGormPersister(db.DB())
		if err != nil {
			return err
		}

	case config.StoreDriverRedis:
		if !cfg.Redis.Enabled() {
			return errors.New("redis store driver selected but no redis endpoint configured")
		}
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		pingers = append(pingers, rdb)

		persister, err = cart.NewRedisPersister(rdb, rdb.CartKey(cfg.LocalStore.RedisKey))
		if err != nil {
			return err
		}

	case config.StoreDriverMemory:
		persister = cart.NewMemoryPersister()
	}

	// A redis endpoint configured alongside the sqlite driver is still used
	// as the weather cache.
	if rdb == nil && cfg.Redis.Enabled() {
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unavailable, weather cache disabled")
			rdb = nil
		} else {
			defer rdb.Close()
			pingers = append(pingers, rdb)
		}
	}

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL, backend.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		return err
	}
	weatherClient := weather.NewClient(
		weather.WithBaseURL(cfg.Weather.BaseURL),
		weather.WithHTTPClient(&http.Client{Timeout: cfg.Weather.Timeout}),
	)

	store, err := cart.NewStore(cart.StoreParams{
		Persister:   persister,
		SettleDelay: cfg.Cart.SettleDelay,
		Metrics:     cartMetrics,
		Logger:      logg,
	})
	if err != nil {
		return err
	}
	if err := store.Load(ctx); err != nil {
		return err
	}

	pageController, err := cartpage.NewController(cartpage.ControllerParams{
		Store:          store,
		Client:         backendClient,
		DebounceWindow: cfg.Cart.DebounceWindow,
		Metrics:        cartMetrics,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	// Warm the mirror from the backend; failure is tolerated, the local
	// state stands until a later refresh succeeds.
	if err := pageController.Refresh(ctx); err != nil {
		logg.Warn(ctx, "initial cart refresh failed, serving local state")
	}

	farmService, err := farm.NewService(farm.ServiceParams{
		Profiles: backendClient,
		Weather:  weatherClient,
		Cache:    rdb,
		CacheTTL: cfg.Weather.CacheTTL,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(backendClient)
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(backendClient)
	if err != nil {
		return err
	}

	cartController, err := controllers.NewCartController(store, pageController, logg)
	if err != nil {
		return err
	}
	catalogController, err := controllers.NewCatalogController(catalogService, logg)
	if err != nil {
		return err
	}
	ordersController, err := controllers.NewOrdersController(ordersService, logg)
	if err != nil {
		return err
	}
	farmController, err := controllers.NewFarmController(farmService, logg)
	if err != nil {
		return err
	}

	router := routes.New(logg, registry, routes.Controllers{
		Cart:    cartController,
		Catalog: catalogController,
		Orders:  ordersController,
		Farm:    farmController,
		Health:  controllers.NewHealthController(logg, pingers...),
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", cfg.App.Port), "storefront listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
