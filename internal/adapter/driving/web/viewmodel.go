package web

import (
	"fmt"
	"time"

	vm "github.com/ericfisherdev/notekeeper/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// toNoteViewModel converts a note and its UI state to a NoteViewModel.
func toNoteViewModel(state application.NoteState, loc *time.Location) vm.NoteViewModel {
	n := state.Note
	return vm.NoteViewModel{
		ID:            n.ID,
		Title:         n.Title,
		Text:          n.Text,
		UpdatedLabel:  n.UpdatedLabel(loc),
		Editing:       state.Editing,
		EditAction:    fmt.Sprintf("/app/notes/%d/edit", n.ID),
		ConfirmAction: fmt.Sprintf("/app/notes/%d", n.ID),
		DeleteAction:  fmt.Sprintf("/app/notes/%d/delete", n.ID),
	}
}

// toNoteViewModels converts a workspace snapshot, preserving list order.
// Always returns a non-nil slice.
func toNoteViewModels(states []application.NoteState, loc *time.Location) []vm.NoteViewModel {
	out := make([]vm.NoteViewModel, 0, len(states))
	for _, s := range states {
		out = append(out, toNoteViewModel(s, loc))
	}
	return out
}

func toAppViewModel(user model.User, states []application.NoteState, loc *time.Location, csrf string) vm.AppViewModel {
	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return vm.AppViewModel{
		DisplayName: name,
		Provider:    user.Provider,
		Notes:       toNoteViewModels(states, loc),
		CSRFToken:   csrf,
	}
}

var providerLabels = map[string]string{
	model.ProviderEmail:  "Sign in with email",
	model.ProviderGitHub: "Sign in with GitHub",
}

// toAuthViewModel lists the enabled providers in configured order.
func toAuthViewModel(providers []string, widgetURL, csrf, errMsg string) vm.AuthViewModel {
	opts := make([]vm.ProviderOption, 0, len(providers))
	for _, name := range providers {
		opt := vm.ProviderOption{Name: name, Label: providerLabels[name]}
		if opt.Label == "" {
			opt.Label = "Sign in with " + name
		}
		if name != model.ProviderEmail {
			opt.LoginURL = "/auth/" + name + "/login"
		}
		opts = append(opts, opt)
	}
	return vm.AuthViewModel{
		Providers: opts,
		WidgetURL: widgetURL,
		CSRFToken: csrf,
		Error:     errMsg,
	}
}
