//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"sync"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

// RemediationObservation is one recorded remediation step.
type RemediationObservation struct {
	Step string
	Err  error
}

// SpyMetricsRepository records every observation it receives.
type SpyMetricsRepository struct {
	mu sync.Mutex

	Audits           []entities.AuditStats
	AuditErrs        []error
	LookupsSucceeded int
	LookupsFailed    int
	RemediationSteps []RemediationObservation
}

var _ repositories.MetricsRepository = (*SpyMetricsRepository)(nil)

func (s *SpyMetricsRepository) ObserveAudit(stats entities.AuditStats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Audits = append(s.Audits, stats)
	s.AuditErrs = append(s.AuditErrs, err)
}

func (s *SpyMetricsRepository) ObserveLookup(_ entities.Ecosystem, succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if succeeded {
		s.LookupsSucceeded++
		return
	}
	s.LookupsFailed++
}

func (s *SpyMetricsRepository) ObserveRemediation(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RemediationSteps = append(s.RemediationSteps, RemediationObservation{Step: step, Err: err})
}

// Steps returns the names of the observed remediation steps in order.
func (s *SpyMetricsRepository) Steps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := make([]string, 0, len(s.RemediationSteps))
	for _, observation := range s.RemediationSteps {
		steps = append(steps, observation.Step)
	}
	return steps
}

// DummyMetricsRepository discards every observation.
type DummyMetricsRepository struct{}

var _ repositories.MetricsRepository = (*DummyMetricsRepository)(nil)

func (d *DummyMetricsRepository) ObserveAudit(_ entities.AuditStats, _ error) {}
func (d *DummyMetricsRepository) ObserveLookup(_ entities.Ecosystem, _ bool)   {}
func (d *DummyMetricsRepository) ObserveRemediation(_ string, _ error)         {}
