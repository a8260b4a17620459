//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"sync"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

// StubEcosystemRepository is a configurable stub for repositories.EcosystemRepository.
type StubEcosystemRepository struct {
	mu sync.Mutex

	EcosystemName entities.Ecosystem
	Filename      string

	// --- ParseManifest ---
	Dependencies map[string]string // returned for any content
	SkippedLines int
	ParseErr     error

	// --- RewriteManifest ---
	Rewritten  string
	RewriteErr error
	// spy: updates received
	RewriteCalls []map[string]string

	// --- LatestVersion ---
	Versions map[string]string // package -> latest; missing packages fail the lookup
	// spy: packages looked up
	LookedUp []string
}

var _ repositories.EcosystemRepository = (*StubEcosystemRepository)(nil)

func (s *StubEcosystemRepository) Ecosystem() entities.Ecosystem { return s.EcosystemName }

func (s *StubEcosystemRepository) ManifestFilename() string { return s.Filename }

func (s *StubEcosystemRepository) ParseManifest(_ string) (repositories.ParseResult, error) {
	if s.ParseErr != nil {
		return repositories.ParseResult{}, s.ParseErr
	}
	deps := make(map[string]string, len(s.Dependencies))
	for pkg, constraint := range s.Dependencies {
		deps[pkg] = constraint
	}
	return repositories.ParseResult{Dependencies: deps, SkippedLines: s.SkippedLines}, nil
}

func (s *StubEcosystemRepository) RewriteManifest(_ string, updates map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RewriteCalls = append(s.RewriteCalls, updates)
	return s.Rewritten, s.RewriteErr
}

func (s *StubEcosystemRepository) LatestVersion(_ context.Context, packageName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LookedUp = append(s.LookedUp, packageName)
	version, ok := s.Versions[packageName]
	if !ok {
		return "", entities.NewError(
			entities.KindRegistryLookupFailed, fmt.Sprintf("lookup for %q", packageName), nil,
		)
	}
	return version, nil
}
