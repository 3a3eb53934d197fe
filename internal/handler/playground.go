// Package handler contains HTTP request handlers for both servers.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, body, headers)
// 2. Call the layer below (service, orchestrator, buffer)
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic; they are the glue between HTTP
// and the rest of the application.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sakif/script-playground/internal/apperror"
	"github.com/sakif/script-playground/internal/buffer"
	"github.com/sakif/script-playground/internal/orchestrator"
	"github.com/sakif/script-playground/internal/presentation"
	"github.com/sakif/script-playground/web"
)

const (
	maxSourceBody     = 1 << 20
	keepAliveInterval = 15 * time.Second
)

// PlaygroundHandler serves the editor page and its JSON/SSE API.
//
// The handler holds no state of its own: source text lives in the Buffer,
// the current outcome lives in the orchestrator's Store, and every response
// is derived from those two on demand.
type PlaygroundHandler struct {
	templates *template.Template
	buf       *buffer.Buffer
	orch      *orchestrator.Orchestrator
	endpoint  string
	logger    *slog.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// NewPlaygroundHandler parses the embedded templates once at startup.
//
// base.html defines the page skeleton with a {{template "content" .}}
// placeholder, and playground.html fills it in.
func NewPlaygroundHandler(buf *buffer.Buffer, orch *orchestrator.Orchestrator, endpoint string, logger *slog.Logger) (*PlaygroundHandler, error) {
	tmpl, err := template.ParseFS(web.Templates(), "templates/base.html", "templates/playground.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &PlaygroundHandler{
		templates: tmpl,
		buf:       buf,
		orch:      orch,
		endpoint:  endpoint,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Shutdown ends every open event stream. Register it with
// http.Server.RegisterOnShutdown; streams never go idle on their own.
func (h *PlaygroundHandler) Shutdown() {
	h.doneOnce.Do(func() { close(h.done) })
}

type sourceResponse struct {
	Text    string `json:"text"`
	Version uint64 `json:"version"`
}

type sourceRequest struct {
	Text *string `json:"text"`
}

type runRequest struct {
	Script *string `json:"script"`
}

type runResponse struct {
	Seq  uint64            `json:"seq"`
	View presentation.View `json:"view"`
}

// HandlePlayground serves the editor page with the current source and view
// already rendered, so the page is correct before the event stream connects.
//
// HTTP: GET /
func (h *PlaygroundHandler) HandlePlayground(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":    "Script Playground",
		"Endpoint": h.endpoint,
		"Source":   h.buf.Text(),
		"Version":  h.buf.Version(),
		"View":     h.view(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleGetSource returns the buffer contents.
//
// HTTP: GET /api/source
func (h *PlaygroundHandler) HandleGetSource(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sourceResponse{Text: h.buf.Text(), Version: h.buf.Version()})
}

// HandlePutSource replaces the buffer contents. Any text is accepted,
// including the empty string.
//
// HTTP: PUT /api/source
// REQUEST BODY: {"text": "def main():\n    return {}"}
func (h *PlaygroundHandler) HandlePutSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSourceBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Text == nil {
		writeError(w, apperror.ValidationFailed("text", "text is required"))
		return
	}

	h.buf.SetText(*req.Text)

	writeJSON(w, http.StatusOK, sourceResponse{Text: h.buf.Text(), Version: h.buf.Version()})
}

// HandleRun submits the source for execution and returns immediately with
// the submission number and the (Pending) view. The outcome arrives on the
// event stream.
//
// HTTP: POST /api/run
// REQUEST BODY (optional): {"script": "..."} replaces the buffer first.
func (h *PlaygroundHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSourceBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	text := h.buf.Text()
	if req.Script != nil {
		h.buf.SetText(*req.Script)
		text = *req.Script
	}

	seq := h.orch.Submit(text)

	writeJSON(w, http.StatusAccepted, runResponse{Seq: seq, View: h.view()})
}

// HandleState returns the current view.
//
// HTTP: GET /api/state
func (h *PlaygroundHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view())
}

// HandleEvents streams server-sent events until the client disconnects:
//
//	event: state    data: <View>           after every outcome change
//	event: source   data: {text, version}  after every buffer change
//
// The first state event is the current view.
//
// HTTP: GET /api/events
func (h *PlaygroundHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The server-wide WriteTimeout would otherwise cut long-lived streams.
	_ = rc.SetWriteDeadline(time.Time{})

	states, unsubscribe := h.orch.Store().Subscribe(8)
	defer unsubscribe()

	changes := make(chan buffer.Change, 1)
	stopWatching := h.buf.OnChange(func(c buffer.Change) {
		// Keep only the newest change; the event carries the full text.
		select {
		case <-changes:
		default:
		}
		select {
		case changes <- c:
		default:
		}
	})
	defer stopWatching()

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not supported", slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case o, ok := <-states:
			if !ok {
				return
			}
			err = writeEvent(w, "state", presentation.FromOutcome(o))
		case c := <-changes:
			err = writeEvent(w, "source", sourceResponse{Text: c.Text, Version: c.VersionAfter})
		case <-ticker.C:
			_, err = io.WriteString(w, ": keep-alive\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			h.logger.Debug("event stream closed", slog.String("error", err.Error()))
			return
		}
	}
}

func (h *PlaygroundHandler) view() presentation.View {
	return presentation.FromOutcome(h.orch.Store().Snapshot())
}

// writeEvent writes one SSE frame. JSON never contains a raw newline, so a
// single data line is always enough.
func writeEvent(w io.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
