package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// NoteResponse is the JSON representation of a note.
type NoteResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	UpdatedAt string `json:"updated_at"`
}

// AddNoteRequest is the JSON body for the add note endpoint.
type AddNoteRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// EditNoteRequest is the JSON body for the edit note endpoint.
type EditNoteRequest struct {
	Text string `json:"text"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Time       string `json:"time"`
	Backend    string `json:"backend"`
	Workspaces int    `json:"workspaces"`
}

// toNoteResponse converts a domain Note to its JSON response representation.
func toNoteResponse(n model.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Text:      n.Text,
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toNoteResponses converts a list, always returning a non-nil slice so the
// body is [] rather than null.
func toNoteResponses(notes []model.Note) []NoteResponse {
	resp := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNoteResponse(n))
	}
	return resp
}
