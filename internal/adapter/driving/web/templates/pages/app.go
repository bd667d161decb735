package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/notekeeper/internal/adapter/driving/web/viewmodel"
)

// App renders the signed-in notes page: header, new-note form and note list.
func App(data vm.AppViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		h.raw(`<header class="app-header"><h1>Notes</h1><div class="account"><span class="user-name">`)
		h.text(data.DisplayName)
		h.raw(`</span>`)
		h.form("/auth/signout", "signout", data.CSRFToken)
		h.raw(`<button type="submit">Sign out</button></form></div></header>`)

		if data.Error != "" {
			h.raw(`<p class="error" role="alert">`)
			h.text(data.Error)
			h.raw(`</p>`)
		}

		h.form("/app/notes", "note-form", data.CSRFToken)
		h.raw(`<input type="text" name="title" placeholder="Title" autocomplete="off">`)
		h.raw(`<textarea name="text" placeholder="Take a note..." rows="3" required></textarea>`)
		h.raw(`<button type="submit">Add note</button></form>`)

		h.raw(`<section id="notes">`)
		if len(data.Notes) == 0 {
			h.raw(`<p class="empty">No notes yet.</p>`)
		}
		for _, n := range data.Notes {
			noteCard(h, n, data.CSRFToken)
		}
		h.raw(`</section>`)

		return h.err
	})
}

// noteCard renders one note in the Viewing or Editing state.
func noteCard(h *htmlWriter, n vm.NoteViewModel, csrf string) {
	h.raw(`<article class="note" data-note-id="`)
	h.text(formatID(n.ID))
	h.raw(`"><h2 class="note-title">`)
	h.text(n.Title)
	h.raw(`</h2>`)

	if n.Editing {
		h.form(n.ConfirmAction, "note-edit", csrf)
		h.raw(`<textarea name="text" rows="3">`)
		h.text(n.Text)
		h.raw(`</textarea><button type="submit" class="icon confirm" title="Save">&#10003;</button></form>`)
	} else {
		h.raw(`<p class="note-text">`)
		h.text(n.Text)
		h.raw(`</p>`)
		h.form(n.EditAction, "note-action", csrf)
		h.raw(`<button type="submit" class="icon edit" title="Edit">&#9998;</button></form>`)
	}

	h.form(n.DeleteAction, "note-action", csrf)
	h.raw(`<button type="submit" class="icon delete" title="Delete">&#128465;</button></form>`)

	h.raw(`<p class="note-updated">Updated: `)
	h.text(n.UpdatedLabel)
	h.raw(`</p></article>`)
}
