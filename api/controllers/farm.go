package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jalvarez-dev/farmline-storefront/api/responses"
	"github.com/jalvarez-dev/farmline-storefront/internal/farm"
	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
)

// FarmController serves the farm profile weather widget.
type FarmController struct {
	service *farm.Service
	logg    *logger.Logger
}

func NewFarmController(service *farm.Service, logg *logger.Logger) (*FarmController, error) {
	if service == nil {
		return nil, fmt.Errorf("farm service required")
	}
	return &FarmController{service: service, logg: logg}, nil
}

func (c *FarmController) Weather(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "farmID")
	farmID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid farm id"))
		return
	}
	responses.WriteSuccess(w, c.service.Weather(r.Context(), farmID))
}
