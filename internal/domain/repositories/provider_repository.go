package repositories

import (
	"context"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// ProviderRepository abstracts a code-hosting service (GitHub, GitLab, a local clone).
// Implementations map "the file changed since it was read" to
// entities.ErrConcurrentModification in UpdateFile, and "branch/repository does not
// exist" to entities.ErrRepositoryUnavailable.
type ProviderRepository interface {
	// Name returns the provider identifier (e.g. "github").
	Name() string

	// CurrentUser resolves the identity behind the bearer token.
	CurrentUser(ctx context.Context) (entities.Identity, error)

	// DiscoverRepositories lists the repositories of owner, or the ones visible to
	// the authenticated identity when owner is empty.
	DiscoverRepositories(ctx context.Context, owner string) ([]entities.Repository, error)

	// GetRepository returns repository metadata including its default branch.
	GetRepository(ctx context.Context, ref entities.RepositoryRef) (entities.Repository, error)

	// ListTree lists every path of the branch recursively.
	ListTree(ctx context.Context, repo entities.Repository, branch string) ([]entities.File, error)

	// GetFile returns the decoded content of path on branch and its concurrency token.
	GetFile(ctx context.Context, repo entities.Repository, branch, path string) (entities.FileContent, error)

	// CreateBranch creates branchName pointing at the head commit of fromBranch.
	CreateBranch(ctx context.Context, repo entities.Repository, branchName, fromBranch string) error

	// UpdateFile commits new content for one file, conditioned on input.ExpectedSHA.
	UpdateFile(ctx context.Context, repo entities.Repository, input entities.CommitInput) error

	// CreatePullRequest opens a pull/merge request.
	CreatePullRequest(
		ctx context.Context,
		repo entities.Repository,
		input entities.PullRequestInput,
	) (*entities.PullRequest, error)

	// DeleteBranch removes a branch. Only used by the explicit cleanup path.
	DeleteBranch(ctx context.Context, repo entities.Repository, branchName string) error
}
