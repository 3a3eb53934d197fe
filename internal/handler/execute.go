package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/sakif/script-playground/internal/api"
	"github.com/sakif/script-playground/internal/service"
)

const maxExecuteBody = 1 << 20 // 1MB, well above service.MaxScriptLength

// ExecuteHandler serves the remote execution contract:
//
//	POST /execute {"script": "..."}  →  200 {"stdout", "result"} | 4xx/5xx {"error", "stdout"}
type ExecuteHandler struct {
	service *service.ExecutionService
	logger  *slog.Logger
}

func NewExecuteHandler(svc *service.ExecutionService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		service: svc,
		logger:  logger,
	}
}

// executeRequest uses a pointer so a missing "script" can be told apart
// from an empty one. An empty script is passed through; the harness rejects
// it for lacking main().
type executeRequest struct {
	Script *string `json:"script"`
}

// HandleExecute runs one script.
//
// HTTP: POST /execute
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "Request body must be JSON"})
		return
	}

	var req executeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxExecuteBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "Request body must be JSON"})
		return
	}

	if req.Script == nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "Missing 'script' field in request body"})
		return
	}

	resp, err := h.service.Execute(r.Context(), *req.Script)
	if err != nil {
		writeExecutionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
