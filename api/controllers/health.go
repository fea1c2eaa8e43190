package controllers

import (
	"net/http"

	"github.com/jalvarez-dev/farmline-storefront/api/responses"
	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
	"github.com/jalvarez-dev/farmline-storefront/pkg/localdb"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
)

// HealthController answers liveness and readiness probes. Readiness checks
// the local store dependencies; the marketplace backend is deliberately
// excluded, since the app stays usable from the local mirror when it is down.
type HealthController struct {
	pingers []localdb.Pinger
	logg    *logger.Logger
}

func NewHealthController(logg *logger.Logger, pingers ...localdb.Pinger) *HealthController {
	alive := make([]localdb.Pinger, 0, len(pingers))
	for _, p := range pingers {
		if p != nil {
			alive = append(alive, p)
		}
	}
	return &HealthController{pingers: alive, logg: logg}
}

func (h *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

func (h *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	for _, p := range h.pingers {
		if err := p.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready"))
			return
		}
	}
	responses.WriteSuccess(w, map[string]string{"status": "ready"})
}
