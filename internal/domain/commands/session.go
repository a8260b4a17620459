package commands

import (
	"context"
	"fmt"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/depaudit/internal/infrastructure/repositories"
)

// localProviderName reads a clone on disk and is the only provider that needs no token.
const localProviderName = "local"

// openProvider picks the provider named by the caller, falling back to the configured
// one, and refuses to continue without a token.
func openProvider(
	registry *infraRepos.ProviderRegistry,
	settings *entities.Settings,
	name, token string,
) (repositories.ProviderRepository, error) {
	if name == "" {
		name = settings.Provider.Type
	}
	if token == "" {
		token = settings.Provider.Token
	}
	if token == "" && name != localProviderName {
		return nil, entities.NewError(
			entities.KindAuthorizationMissing,
			fmt.Sprintf("no token configured for provider %q", name),
			nil,
		)
	}

	provider, err := registry.Get(name, token, settings.Provider.BaseURL)
	if err != nil {
		return nil, entities.NewError(entities.KindInvalidRequest, "provider unavailable", err)
	}
	return provider, nil
}

// resolveRepository turns what the caller typed into repository metadata. A bare
// name is owned by the authenticated identity.
func resolveRepository(
	ctx context.Context,
	provider repositories.ProviderRepository,
	raw string,
) (entities.Repository, error) {
	ref, err := entities.ParseRepositoryRef(raw)
	if err != nil {
		return entities.Repository{}, entities.NewError(entities.KindInvalidRequest, "invalid repository", err)
	}

	if ref.Owner == "" {
		identity, identityErr := provider.CurrentUser(ctx)
		if identityErr != nil {
			return entities.Repository{}, fmt.Errorf("failed to resolve identity: %w", identityErr)
		}
		ref.Owner = identity.Login
	}

	repo, err := provider.GetRepository(ctx, ref)
	if err != nil {
		return entities.Repository{}, fmt.Errorf("failed to get repository %q: %w", ref.String(), err)
	}
	return repo, nil
}

// asUnavailable keeps an already tagged error and tags anything else as
// RepositoryUnavailable.
func asUnavailable(detail string, err error) error {
	if entities.KindOf(err) != "" {
		return err
	}
	return entities.NewError(entities.KindRepositoryUnavailable, detail, err)
}
