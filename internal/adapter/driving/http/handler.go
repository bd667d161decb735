// Package httphandler serves the JSON notes API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	registry *application.WorkspaceRegistry
	verifier driven.TokenVerifier
	backend  string
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. verifier may be
// nil, in which case every notes endpoint answers 401.
func NewHandler(
	registry *application.WorkspaceRegistry,
	verifier driven.TokenVerifier,
	backend string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		registry: registry,
		verifier: verifier,
		backend:  backend,
		logger:   logger,
	}
}

// RegisterAPIRoutes registers the /api/v1 routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/notes", h.ListNotes)
	mux.HandleFunc("POST /api/v1/notes", h.AddNote)
	mux.HandleFunc("PATCH /api/v1/notes/{id}", h.EditNote)
	mux.HandleFunc("DELETE /api/v1/notes/{id}", h.DeleteNote)
}

// ApplyMiddleware wraps next with request-id, logging and recovery middleware.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListNotes returns the caller's notes in list order.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	if !ws.Loaded() {
		h.noteError(w, application.ErrNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponses(ws.Notes()))
}

// AddNote appends a note. Empty text is rejected with 422.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var req AddNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	note, added, err := ws.AddNote(r.Context(), req.Title, req.Text)
	if err != nil {
		h.noteError(w, err)
		return
	}
	if !added {
		writeError(w, http.StatusUnprocessableEntity, "note text must not be empty")
		return
	}

	writeJSON(w, http.StatusCreated, toNoteResponse(note))
}

// EditNote replaces a note's text.
func (h *Handler) EditNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	var req EditNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := ws.ConfirmEdit(r.Context(), id, req.Text)
	if err != nil {
		h.noteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

// DeleteNote removes a note.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	if err := ws.DeleteNote(r.Context(), id); err != nil {
		h.noteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339),
		Backend:    h.backend,
		Workspaces: h.registry.Len(),
	})
}

// workspace authenticates the bearer token and returns the caller's loaded
// workspace. It writes the error response itself when it returns false.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*application.Workspace, bool) {
	if h.verifier == nil {
		writeError(w, http.StatusUnauthorized, "token authentication is not enabled")
		return nil, false
	}

	token, ok := bearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return nil, false
	}

	user, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		if !errors.Is(err, driven.ErrInvalidToken) {
			h.logger.Error("token verification failed", "error", err)
		}
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	user.Provider = model.ProviderEmail

	return h.registry.Open(r.Context(), user), true
}

func (h *Handler) noteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrNoteNotFound):
		writeError(w, http.StatusNotFound, "note not found")
	case errors.Is(err, application.ErrWorkspaceClosed):
		writeError(w, http.StatusConflict, "session ended, retry the request")
	case errors.Is(err, application.ErrNotLoaded):
		h.logger.Warn("notes unavailable", "error", err)
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "notes are temporarily unavailable, retry the request")
	default:
		h.logger.Error("note operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
