package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Pages are served at /, note forms post to /app/notes/*, sign-in flows live
// under /auth/*. Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Index)

	// Note forms.
	mux.HandleFunc("POST /app/notes", h.AddNote)
	mux.HandleFunc("POST /app/notes/{id}", h.ConfirmEdit)
	mux.HandleFunc("POST /app/notes/{id}/edit", h.BeginEdit)
	mux.HandleFunc("POST /app/notes/{id}/delete", h.DeleteNote)

	// Sign-in and sign-out.
	mux.HandleFunc("POST /auth/email", h.EmailSignIn)
	mux.HandleFunc("GET /auth/{provider}/login", h.FederatedLogin)
	mux.HandleFunc("GET /auth/{provider}/callback", h.FederatedCallback)
	mux.HandleFunc("POST /auth/signout", h.SignOut)
}
