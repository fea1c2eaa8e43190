package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jalvarez-dev/farmline-storefront/api/controllers"
	"github.com/jalvarez-dev/farmline-storefront/api/middleware"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
)

// Controllers groups the handlers mounted by New.
type Controllers struct {
	Cart    *controllers.CartController
	Catalog *controllers.CatalogController
	Orders  *controllers.OrdersController
	Farm    *controllers.FarmController
	Health  *controllers.HealthController
}

// New builds the HTTP router: probes and metrics at the root, the storefront
// API under /api/v1.
func New(logg *logger.Logger, registry *prometheus.Registry, ctrl Controllers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))

	r.Get("/health/live", ctrl.Health.Live)
	r.Get("/health/ready", ctrl.Health.Ready)

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", ctrl.Cart.Get)
			r.Post("/refresh", ctrl.Cart.Refresh)
			r.Get("/badge", ctrl.Cart.Badge)
			r.Get("/events", ctrl.Cart.Events)
			r.Post("/items", ctrl.Cart.AddItem)
			r.Patch("/items/{itemID}", ctrl.Cart.UpdateItemQuantity)
			r.Delete("/items/{itemID}", ctrl.Cart.RemoveItem)
		})

		r.Get("/products", ctrl.Catalog.List)
		r.Get("/orders", ctrl.Orders.List)
		r.Get("/farms/{farmID}/weather", ctrl.Farm.Weather)
	})

	return r
}
