package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/notekeeper/internal/adapter/driving/web/viewmodel"
)

// Auth renders the sign-in page. Federated providers get a login link; the
// email provider's hosted widget mounts into #auth-container.
func Auth(data vm.AuthViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		h.raw(`<section class="auth"><h1>Notes</h1>`)
		if data.Error != "" {
			h.raw(`<p class="error" role="alert">`)
			h.text(data.Error)
			h.raw(`</p>`)
		}
		if len(data.Providers) == 0 {
			h.raw(`<p class="empty">No sign-in providers are configured.</p>`)
		}

		for _, p := range data.Providers {
			if p.LoginURL == "" {
				continue
			}
			h.raw(`<a class="provider provider-`)
			h.text(p.Name)
			h.raw(`" href="`)
			h.text(p.LoginURL)
			h.raw(`">`)
			h.text(p.Label)
			h.raw(`</a>`)
		}

		if data.HasProvider("email") {
			h.raw(`<div id="auth-container" data-callback="/auth/email"></div>`)
			// Without the hosted widget, accept a pasted ID token.
			if data.WidgetURL == "" {
				h.form("/auth/email", "token-form", data.CSRFToken)
				h.raw(`<input type="text" name="id_token" placeholder="ID token" autocomplete="off">`)
				h.raw(`<button type="submit">Sign in with email</button></form>`)
			}
		}
		h.raw(`</section>`)

		return h.err
	})
}
