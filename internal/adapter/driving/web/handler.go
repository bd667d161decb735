// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/ericfisherdev/notekeeper/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/notekeeper/internal/adapter/driving/web/templates/pages"
	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

const (
	pageTitle       = "Notes"
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// authErrors maps the ?error= codes the sign-in flows redirect with to the
// message shown on the auth page.
var authErrors = map[string]string{
	"signin":   "Sign-in failed. Please try again.",
	"provider": "The sign-in provider reported an error.",
}

const unavailableMessage = "Your notes could not be loaded, so nothing was saved. Please try again."

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	registry  *application.WorkspaceRegistry
	gateway   *application.AuthGateway
	verifier  driven.TokenVerifier
	federated *application.FederatedProviders
	sessions  *Sessions
	widgetURL string
	loc       *time.Location
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. verifier may be
// nil when the email provider is disabled.
func NewHandler(
	registry *application.WorkspaceRegistry,
	gateway *application.AuthGateway,
	verifier driven.TokenVerifier,
	federated *application.FederatedProviders,
	sessions *Sessions,
	widgetURL string,
	loc *time.Location,
	logger *slog.Logger,
) *Handler {
	if federated == nil {
		federated = application.NewFederatedProviders()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		registry:  registry,
		gateway:   gateway,
		verifier:  verifier,
		federated: federated,
		sessions:  sessions,
		widgetURL: widgetURL,
		loc:       loc,
		logger:    logger,
	}
}

// Index renders the notes page for a signed-in user and the sign-in page otherwise.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	csrf := csrfToken(w, r, h.sessions.secure)

	user, err := h.sessions.User(r)
	if err != nil {
		scripts := []string{"/static/auth.js"}
		if h.widgetURL != "" && h.gateway.ProviderEnabled(model.ProviderEmail) {
			scripts = append(scripts, h.widgetURL)
		}
		data := toAuthViewModel(h.gateway.Providers(), h.widgetURL, csrf, authErrors[r.URL.Query().Get("error")])
		h.render(w, r, pages.Auth(data), scripts...)
		return
	}

	ws := h.registry.Open(r.Context(), user)
	data := toAppViewModel(user, ws.Snapshot(), h.loc, csrf)
	if !ws.Loaded() || r.URL.Query().Get("error") == "unavailable" {
		data.Error = unavailableMessage
	}
	h.render(w, r, pages.App(data))
}

// AddNote appends a note built from the title and text form fields.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	title := formText(r.FormValue("title"))
	text := formText(r.FormValue("text"))

	_, added, err := ws.AddNote(r.Context(), title, text)
	if err != nil {
		h.noteError(w, r, err)
		return
	}
	if !added {
		h.logger.Debug("empty note ignored", "user_id", ws.User().ID)
	}
	redirectHome(w, r)
}

// BeginEdit switches a note to the editing state.
func (h *Handler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	if err := ws.BeginEdit(id); err != nil {
		h.noteError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// ConfirmEdit saves the edited text and returns every note to viewing.
func (h *Handler) ConfirmEdit(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	if _, err := ws.ConfirmEdit(r.Context(), id, formText(r.FormValue("text"))); err != nil {
		h.noteError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// DeleteNote removes a note in either state.
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
		h.noteError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// EmailSignIn verifies the email provider's ID token and starts a session.
func (h *Handler) EmailSignIn(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}
	if h.verifier == nil || !h.gateway.ProviderEnabled(model.ProviderEmail) {
		http.NotFound(w, r)
		return
	}

	user, err := h.verifier.Verify(r.Context(), r.FormValue("id_token"))
	if err != nil {
		h.logger.Warn("email sign-in rejected", "error", err)
		http.Redirect(w, r, "/?error=signin", http.StatusSeeOther)
		return
	}
	user.Provider = model.ProviderEmail

	h.signIn(w, r, user)
}

// FederatedLogin redirects to the provider's OAuth consent page.
func (h *Handler) FederatedLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.federatedProvider(w, r)
	if !ok {
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.sessions.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// FederatedCallback completes the OAuth flow and starts a session.
func (h *Handler) FederatedCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.federatedProvider(w, r)
	if !ok {
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth/", MaxAge: -1})

	q := r.URL.Query()
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("oauth state mismatch", "provider", provider.Name())
		http.Redirect(w, r, "/?error=signin", http.StatusSeeOther)
		return
	}
	if e := q.Get("error"); e != "" {
		h.logger.Warn("oauth provider error", "provider", provider.Name(), "error", e)
		http.Redirect(w, r, "/?error=provider", http.StatusSeeOther)
		return
	}

	user, err := provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Error("oauth exchange failed", "provider", provider.Name(), "error", err)
		http.Redirect(w, r, "/?error=signin", http.StatusSeeOther)
		return
	}

	h.signIn(w, r, user)
}

// SignOut flushes pending writes, publishes the sign-out and ends the session.
// When the flush fails the user stays signed in.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	user, err := h.sessions.User(r)
	if err != nil {
		h.sessions.Clear(w)
		redirectHome(w, r)
		return
	}

	revoke := func(ctx context.Context) error {
		if ws, ok := h.registry.Get(user.ID); ok {
			return ws.Flush(ctx)
		}
		return nil
	}
	if err := h.gateway.SignOut(r.Context(), user, revoke); err != nil {
		redirectHome(w, r)
		return
	}

	h.sessions.Clear(w)
	redirectHome(w, r)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, user model.User) {
	if err := h.sessions.Set(w, user); err != nil {
		h.logger.Error("failed to issue session", "user_id", user.ID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.gateway.SignedIn(r.Context(), user)
	redirectHome(w, r)
}

func (h *Handler) federatedProvider(w http.ResponseWriter, r *http.Request) (driven.FederatedProvider, bool) {
	name := r.PathValue("provider")
	provider := h.federated.Get(name)
	if provider == nil || !h.gateway.ProviderEnabled(name) {
		http.NotFound(w, r)
		return nil, false
	}
	return provider, true
}

// workspace validates CSRF and the session, then returns the user's loaded
// workspace. It writes the response itself when it returns false.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*application.Workspace, bool) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return nil, false
	}

	user, err := h.sessions.User(r)
	if err != nil {
		redirectHome(w, r)
		return nil, false
	}
	return h.registry.Open(r.Context(), user), true
}

func (h *Handler) noteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, application.ErrNoteNotFound):
		http.Error(w, "note not found", http.StatusNotFound)
	case errors.Is(err, application.ErrWorkspaceClosed):
		redirectHome(w, r)
	case errors.Is(err, application.ErrNotLoaded):
		h.logger.Warn("note change rejected, list not loaded", "error", err)
		http.Redirect(w, r, "/?error=unavailable", http.StatusSeeOther)
	default:
		h.logger.Error("note operation failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, body templ.Component, scripts ...string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Layout(pageTitle, body, scripts...).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid note id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// redirectHome sends the browser back to the notes page after a form post.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
