package application

import (
	"sort"
	"sync"

	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// FederatedProviders holds the federated sign-in providers by name. Providers
// can be replaced at runtime, e.g. when OAuth app credentials rotate.
type FederatedProviders struct {
	mu        sync.RWMutex
	providers map[string]driven.FederatedProvider
}

// NewFederatedProviders creates a set holding the given providers. Nil entries are skipped.
func NewFederatedProviders(providers ...driven.FederatedProvider) *FederatedProviders {
	set := &FederatedProviders{providers: map[string]driven.FederatedProvider{}}
	for _, p := range providers {
		if p != nil {
			set.providers[p.Name()] = p
		}
	}
	return set
}

// Get returns the provider registered under name, or nil.
func (s *FederatedProviders) Get(name string) driven.FederatedProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[name]
}

// Replace registers p under its name, swapping out any previous provider.
func (s *FederatedProviders) Replace(p driven.FederatedProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.Name()] = p
}

// Names returns the registered provider names, sorted.
func (s *FederatedProviders) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
