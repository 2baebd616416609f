package dvr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the DVR control API over HTTP using go-chi.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler returns a Handler that uses the given Service and Logger.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the control API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/start", h.Start)
	r.Post("/stop/{name}", h.Stop)
	r.Post("/finalize/{name}", h.Finalize)
	r.Get("/live", h.ListLive)
	r.Get("/finished", h.ListFinished)
}

// Start handles POST /api/start.
// Body: { "name": "cam1", "input_url": "https://...", "hls_time": 6, "resume": false }.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid start body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Start(req); err != nil {
		h.log.Error("start recording failed",
			slog.String("name", req.Name),
			slog.String("error", err.Error()))
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeStatus(w, http.StatusOK, "started")
}

// Stop handles POST /api/stop/{name}. Stopping a recording that is not
// running succeeds; stop is idempotent.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing recording name")
		return
	}

	h.svc.Stop(name)
	writeStatus(w, http.StatusOK, "stopped")
}

// Finalize handles POST /api/finalize/{name}.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing recording name")
		return
	}

	if err := h.svc.Finalize(name); err != nil {
		h.log.Error("finalize failed",
			slog.String("name", name),
			slog.String("error", err.Error()))
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeStatus(w, http.StatusOK, "finalized")
}

// ListLive handles GET /api/live.
func (h *Handler) ListLive(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListLive()
	if err != nil {
		h.log.Error("list live failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListFinished handles GET /api/finished.
func (h *Handler) ListFinished(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListFinished()
	if err != nil {
		h.log.Error("list finished failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// statusForError maps the domain error taxonomy to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyRunning),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrAlreadyFinalized):
		return http.StatusConflict
	case errors.Is(err, ErrNoSuchPendingRecording):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	writeJSON(w, code, map[string]string{"status": status})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
