// Package pages renders the notekeeper views as templ components.
package pages

import (
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter accumulates the first write error so page bodies read top to bottom.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) csrfField(token string) {
	h.raw(`<input type="hidden" name="csrf_token" value="`)
	h.text(token)
	h.raw(`">`)
}

// form opens a POST form to action carrying the CSRF token.
func (h *htmlWriter) form(action, class, csrf string) {
	h.raw(`<form method="post" action="`)
	h.text(action)
	h.raw(`" class="`)
	h.text(class)
	h.raw(`">`)
	h.csrfField(csrf)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
