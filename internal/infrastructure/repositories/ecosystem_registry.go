package repositories

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	domainRepos "github.com/rios0rios0/depaudit/internal/domain/repositories"
)

// EcosystemRegistry manages all registered ecosystems and the manifest
// filename -> ecosystem table derived from them.
type EcosystemRegistry struct {
	ecosystems map[entities.Ecosystem]domainRepos.EcosystemRepository
	filenames  map[string]entities.Ecosystem
}

// NewEcosystemRegistry creates an empty ecosystem registry.
func NewEcosystemRegistry() *EcosystemRegistry {
	return &EcosystemRegistry{
		ecosystems: make(map[entities.Ecosystem]domainRepos.EcosystemRepository),
		filenames:  make(map[string]entities.Ecosystem),
	}
}

// Register adds an ecosystem under its identifier and manifest filename.
func (r *EcosystemRegistry) Register(e domainRepos.EcosystemRepository) {
	r.ecosystems[e.Ecosystem()] = e
	r.filenames[e.ManifestFilename()] = e.Ecosystem()
}

// Get returns the ecosystem with the given identifier, or nil if not registered.
func (r *EcosystemRegistry) Get(ecosystem entities.Ecosystem) domainRepos.EcosystemRepository {
	return r.ecosystems[ecosystem]
}

// ForPath returns the ecosystem whose manifest filename is exactly the base name
// of filePath.
func (r *EcosystemRegistry) ForPath(filePath string) (domainRepos.EcosystemRepository, bool) {
	ecosystem, ok := r.filenames[path.Base(filePath)]
	if !ok {
		return nil, false
	}
	return r.ecosystems[ecosystem], true
}

// LatestVersion looks a package up in the registry of the given ecosystem.
func (r *EcosystemRegistry) LatestVersion(
	ctx context.Context,
	ecosystem entities.Ecosystem,
	packageName string,
) (string, error) {
	e := r.Get(ecosystem)
	if e == nil {
		return "", fmt.Errorf("unknown ecosystem: %q", ecosystem)
	}
	return e.LatestVersion(ctx, packageName)
}

// All returns every registered ecosystem sorted by identifier.
func (r *EcosystemRegistry) All() []domainRepos.EcosystemRepository {
	result := make([]domainRepos.EcosystemRepository, 0, len(r.ecosystems))
	for _, e := range r.ecosystems {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ecosystem() < result[j].Ecosystem()
	})
	return result
}

// Filenames returns the sorted list of recognised manifest filenames.
func (r *EcosystemRegistry) Filenames() []string {
	names := make([]string, 0, len(r.filenames))
	for name := range r.filenames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
