package model

// Identity providers a user can sign in with.
const (
	ProviderEmail  = "email"
	ProviderGitHub = "github"
)

// User is the identity captured from a provider sign-in. ID keys the user's
// note document in the remote store.
type User struct {
	ID          string
	DisplayName string
	Provider    string
}

// IsZero reports whether u carries no identity.
func (u User) IsZero() bool {
	return u.ID == ""
}
