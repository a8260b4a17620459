package commands

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	infraRepos "github.com/rios0rios0/depaudit/internal/infrastructure/repositories"
)

// Cleanup is the interface for the cleanup command.
type Cleanup interface {
	Execute(ctx context.Context, settings *entities.Settings, opts CleanupOptions) error
}

// CleanupOptions holds runtime options for deleting one remediation branch.
type CleanupOptions struct {
	Provider   string
	Token      string
	Repository string
	Branch     string
}

// CleanupCommand deletes a branch left behind by a remediation whose later steps
// failed. It refuses any branch not created by a remediation.
type CleanupCommand struct {
	providerRegistry *infraRepos.ProviderRegistry
}

// NewCleanupCommand creates a new CleanupCommand.
func NewCleanupCommand(providerRegistry *infraRepos.ProviderRegistry) *CleanupCommand {
	return &CleanupCommand{providerRegistry: providerRegistry}
}

// Execute deletes opts.Branch.
func (it *CleanupCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts CleanupOptions,
) error {
	if !strings.HasPrefix(opts.Branch, entities.BranchPrefix) {
		return entities.NewError(
			entities.KindInvalidRequest,
			fmt.Sprintf("branch %q was not created by a remediation (expected prefix %q)",
				opts.Branch, entities.BranchPrefix),
			nil,
		)
	}

	provider, err := openProvider(it.providerRegistry, settings, opts.Provider, opts.Token)
	if err != nil {
		return err
	}

	repo, err := resolveRepository(ctx, provider, opts.Repository)
	if err != nil {
		return asUnavailable("repository unreachable", err)
	}

	if err = provider.DeleteBranch(ctx, repo, opts.Branch); err != nil {
		return asUnavailable(fmt.Sprintf("failed to delete branch %q", opts.Branch), err)
	}

	logger.Infof("[cleanup] Deleted branch %q from %s", opts.Branch, entities.FullName(repo))
	return nil
}
