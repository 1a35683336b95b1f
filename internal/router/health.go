package router

import (
	"net/http"
	"time"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
)

func healthHandler(version string, status func() api.ServiceStatus) http.HandlerFunc {
	if version == "" {
		version = "1.0.0"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var services api.ServiceStatus
		if status != nil {
			services = status()
		}
		api.WriteJSONResponse(w, r, http.StatusOK, api.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   version,
			Services:  services,
		})
	}
}
