package controllers

import (
	"fmt"
	"net/http"

	"github.com/jalvarez-dev/farmline-storefront/api/responses"
	"github.com/jalvarez-dev/farmline-storefront/internal/orders"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
)

// OrdersController serves the order history page.
type OrdersController struct {
	service *orders.Service
	logg    *logger.Logger
}

func NewOrdersController(service *orders.Service, logg *logger.Logger) (*OrdersController, error) {
	if service == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &OrdersController{service: service, logg: logg}, nil
}

func (c *OrdersController) List(w http.ResponseWriter, r *http.Request) {
	history, err := c.service.List(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{"orders": history})
}
