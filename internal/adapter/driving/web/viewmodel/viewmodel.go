// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// NoteViewModel holds presentation-ready data for one note card.
type NoteViewModel struct {
	ID           int64
	Title        string
	Text         string
	UpdatedLabel string // "D/M/YYYY H:M:S" in the display time zone
	Editing      bool

	// Form actions with the note id bound in.
	EditAction    string
	ConfirmAction string
	DeleteAction  string
}

// AppViewModel holds everything the signed-in notes page renders.
type AppViewModel struct {
	DisplayName string
	Provider    string
	Notes       []NoteViewModel
	CSRFToken   string
	// Error is shown above the notes when set.
	Error string
}

// ProviderOption is one sign-in choice on the auth page.
type ProviderOption struct {
	Name     string
	Label    string
	LoginURL string // empty for widget-driven providers
}

// AuthViewModel holds the sign-in page data.
type AuthViewModel struct {
	Providers []ProviderOption
	WidgetURL string
	CSRFToken string
	Error     string
}

// HasProvider reports whether the named provider is offered.
func (a AuthViewModel) HasProvider(name string) bool {
	for _, p := range a.Providers {
		if p.Name == name {
			return true
		}
	}
	return false
}
