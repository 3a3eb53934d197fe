package handler

import (
	"net/http"

	"github.com/sakif/script-playground/internal/api"
)

// HandleHealth answers liveness probes for both servers.
//
// HTTP: GET /health
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}
