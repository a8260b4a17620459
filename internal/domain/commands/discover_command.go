package commands

import (
	"context"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	infraRepos "github.com/rios0rios0/depaudit/internal/infrastructure/repositories"
)

// Discover is the interface for the repository listing command.
type Discover interface {
	Execute(ctx context.Context, settings *entities.Settings, opts DiscoverOptions) ([]entities.Repository, error)
}

// DiscoverOptions holds runtime options for listing repositories.
type DiscoverOptions struct {
	Provider string
	Token    string
	// Owner is an organization, group, project or user. Empty lists what the
	// token's identity can see.
	Owner string
}

// DiscoverCommand lists the repositories a caller can pick from before auditing.
type DiscoverCommand struct {
	providerRegistry *infraRepos.ProviderRegistry
}

// NewDiscoverCommand creates a new DiscoverCommand.
func NewDiscoverCommand(providerRegistry *infraRepos.ProviderRegistry) *DiscoverCommand {
	return &DiscoverCommand{providerRegistry: providerRegistry}
}

// Execute lists the repositories of opts.Owner sorted by full name.
func (it *DiscoverCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts DiscoverOptions,
) ([]entities.Repository, error) {
	provider, err := openProvider(it.providerRegistry, settings, opts.Provider, opts.Token)
	if err != nil {
		return nil, err
	}

	repos, err := provider.DiscoverRepositories(ctx, opts.Owner)
	if err != nil {
		return nil, asUnavailable("failed to list repositories", err)
	}

	sort.Slice(repos, func(i, j int) bool {
		return entities.FullName(repos[i]) < entities.FullName(repos[j])
	})
	logger.Infof("[discover] Found %d repositories on %s", len(repos), provider.Name())
	return repos, nil
}
