package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/script-playground/internal/service"
)

// RunHandler exposes the execution log of the execution service.
type RunHandler struct {
	service *service.ExecutionService
	logger  *slog.Logger
}

func NewRunHandler(svc *service.ExecutionService, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		service: svc,
		logger:  logger,
	}
}

// HandleList returns recent runs, newest first.
//
// HTTP: GET /runs?limit=20&offset=0&status=failed
//
// Unparseable limit/offset values fall back to their defaults.
func (h *RunHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	runs, err := h.service.ListRuns(r.Context(), limit, offset, q.Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// HandleGetByID returns a single run.
//
// HTTP: GET /runs/{id}
func (h *RunHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}
