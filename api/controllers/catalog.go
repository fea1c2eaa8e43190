package controllers

import (
	"fmt"
	"net/http"

	"github.com/jalvarez-dev/farmline-storefront/api/responses"
	"github.com/jalvarez-dev/farmline-storefront/internal/catalog"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
)

// CatalogController serves the product listing page.
type CatalogController struct {
	service *catalog.Service
	logg    *logger.Logger
}

func NewCatalogController(service *catalog.Service, logg *logger.Logger) (*CatalogController, error) {
	if service == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &CatalogController{service: service, logg: logg}, nil
}

func (c *CatalogController) List(w http.ResponseWriter, r *http.Request) {
	products, err := c.service.List(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{"products": products})
}
