package repositories

import (
	"fmt"
	"sort"

	domainRepos "github.com/rios0rios0/depaudit/internal/domain/repositories"
)

// ProviderFactory creates a ProviderRepository from an auth token and an optional
// API base URL (empty selects the public service).
type ProviderFactory func(token, baseURL string) (domainRepos.ProviderRepository, error)

// ProviderRegistry manages all registered code-hosting provider implementations.
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates an empty provider registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register adds a provider factory under the given name (e.g. "github").
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// Get returns a configured provider instance for the given name, token and base URL.
func (r *ProviderRegistry) Get(name, token, baseURL string) (domainRepos.ProviderRepository, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %q", name)
	}
	provider, err := factory(token, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider %q: %w", name, err)
	}
	return provider, nil
}

// Names returns the sorted list of registered provider names.
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
