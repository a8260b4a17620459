package commands

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/depaudit/internal/infrastructure/repositories"
)

// manifestListing is the set of manifests found on a branch.
type manifestListing struct {
	Branch    string
	Manifests []entities.ManifestFile
}

// listManifests walks the tree of branchHint, retrying once on fallbackBranch, and
// keeps every file whose base name is a known manifest filename. Contents are not
// fetched here.
func listManifests(
	ctx context.Context,
	provider repositories.ProviderRepository,
	ecosystems *infraRepos.EcosystemRegistry,
	repo entities.Repository,
	branchHint, fallbackBranch string,
) (manifestListing, error) {
	branch := branchHint
	files, err := provider.ListTree(ctx, repo, branch)
	if err != nil && entities.KindOf(err) != entities.KindAuthorizationMissing &&
		fallbackBranch != "" && fallbackBranch != branchHint && ctx.Err() == nil {
		logger.Warnf("[audit] Failed to list %q on %q, retrying on %q: %v",
			entities.FullName(repo), branchHint, fallbackBranch, err)
		branch = fallbackBranch
		files, err = provider.ListTree(ctx, repo, branch)
	}
	if err != nil {
		return manifestListing{}, asUnavailable(
			fmt.Sprintf("failed to list the tree of %s", entities.FullName(repo)), err,
		)
	}

	listing := manifestListing{Branch: branch}
	for _, file := range files {
		if file.IsDir {
			continue
		}
		ecosystem, ok := ecosystems.ForPath(file.Path)
		if !ok {
			continue
		}
		listing.Manifests = append(listing.Manifests, entities.ManifestFile{
			Ecosystem: ecosystem.Ecosystem(),
			Path:      file.Path,
		})
	}
	return listing, nil
}
