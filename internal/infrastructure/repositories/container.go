package repositories

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	domainRepos "github.com/rios0rios0/depaudit/internal/domain/repositories"
	adoRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/azuredevops"
	ghRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/gitlab"
	localRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/local"
	metricsRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/metrics"
	npmRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/npm"
	pipRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/pip"
)

// EcosystemRegistryBuilder builds the ecosystem registry for a configuration. Registry
// URLs and timeouts are only known once settings are loaded, so commands build it per run.
type EcosystemRegistryBuilder func(settings *entities.Settings) *EcosystemRegistry

// NewDefaultEcosystemRegistry builds the registry of every supported ecosystem.
func NewDefaultEcosystemRegistry(settings *entities.Settings) *EcosystemRegistry {
	reg := NewEcosystemRegistry()
	reg.Register(npmRepo.NewNPMEcosystemRepository(settings.Registries.NPMURL, settings.Audit.RequestTimeout))
	reg.Register(pipRepo.NewPipEcosystemRepository(settings.Registries.PyPIURL, settings.Audit.RequestTimeout))
	return reg
}

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register provider registry with all provider factories
	if err := container.Provide(func() *ProviderRegistry {
		reg := NewProviderRegistry()
		reg.Register("github", ghRepo.NewGitHubProviderRepository)
		reg.Register("gitlab", glRepo.NewGitLabProviderRepository)
		reg.Register("azuredevops", adoRepo.NewAzureDevOpsProviderRepository)
		reg.Register("local", localRepo.NewLocalProviderRepository)
		return reg
	}); err != nil {
		return err
	}

	// Register the ecosystem registry builder with all ecosystem implementations
	if err := container.Provide(func() EcosystemRegistryBuilder {
		return NewDefaultEcosystemRegistry
	}); err != nil {
		return err
	}

	// Register metrics and bind the domain interface to it
	if err := container.Provide(metricsRepo.NewPrometheusMetricsRepository); err != nil {
		return err
	}
	if err := container.Provide(func(impl *metricsRepo.PrometheusMetricsRepository) domainRepos.MetricsRepository {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
