package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

const (
	providerName = "local"
	localOwner   = "local"
)

// ErrReadOnlyProvider is returned by every write on a local clone.
var ErrReadOnlyProvider = errors.New("local provider is read-only")

// LocalProviderRepository implements repositories.ProviderRepository over a Git
// clone on disk. Trees and files are read from committed branch objects, never from
// the working copy, so the audit sees exactly what a branch holds.
type LocalProviderRepository struct{}

// NewLocalProviderRepository creates a local provider. Token and base URL are ignored.
func NewLocalProviderRepository(_, _ string) (repositories.ProviderRepository, error) {
	return &LocalProviderRepository{}, nil
}

func (p *LocalProviderRepository) Name() string { return providerName }

func (p *LocalProviderRepository) CurrentUser(_ context.Context) (entities.Identity, error) {
	return entities.Identity{Login: localOwner}, nil
}

// DiscoverRepositories lists the Git clones directly under the directory owner
// (the working directory when empty). Directories that are not clones are skipped.
func (p *LocalProviderRepository) DiscoverRepositories(
	ctx context.Context,
	owner string,
) ([]entities.Repository, error) {
	if owner == "" {
		owner = "."
	}
	entries, err := os.ReadDir(owner)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to read directory %q", owner), err)
	}

	var repos []entities.Repository
	for _, entry := range entries {
		dir := filepath.Join(owner, entry.Name())
		if !entry.IsDir() {
			continue
		}
		// a plain subdirectory would otherwise resolve to the enclosing clone
		if _, statErr := os.Stat(filepath.Join(dir, git.GitDirName)); statErr != nil {
			continue
		}
		repo, repoErr := p.GetRepository(ctx, entities.RepositoryRef{Name: dir})
		if repoErr != nil {
			continue
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func (p *LocalProviderRepository) GetRepository(
	_ context.Context,
	ref entities.RepositoryRef,
) (entities.Repository, error) {
	dir, err := filepath.Abs(ref.Name)
	if err != nil {
		return entities.Repository{}, unavailable(fmt.Sprintf("invalid path %q", ref.Name), err)
	}

	repo, err := openRepository(dir)
	if err != nil {
		return entities.Repository{}, err
	}

	head, err := repo.Head()
	if err != nil {
		return entities.Repository{}, unavailable("failed to resolve HEAD", err)
	}

	return entities.Repository{
		Organization:  localOwner,
		Name:          dir,
		DefaultBranch: head.Name().Short(),
		ProviderName:  providerName,
	}, nil
}

func (p *LocalProviderRepository) ListTree(
	_ context.Context,
	repo entities.Repository,
	branch string,
) ([]entities.File, error) {
	tree, err := branchTree(repo.Name, branch)
	if err != nil {
		return nil, err
	}

	var files []entities.File
	err = tree.Files().ForEach(func(f *object.File) error {
		files = append(files, entities.File{
			Path:     f.Name,
			ObjectID: f.Hash.String(),
		})
		return nil
	})
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to walk tree of branch %q", branch), err)
	}
	return files, nil
}

func (p *LocalProviderRepository) GetFile(
	_ context.Context,
	repo entities.Repository,
	branch, path string,
) (entities.FileContent, error) {
	tree, err := branchTree(repo.Name, branch)
	if err != nil {
		return entities.FileContent{}, err
	}

	file, err := tree.File(path)
	if err != nil {
		return entities.FileContent{}, unavailable(fmt.Sprintf("failed to get file %q", path), err)
	}
	content, err := file.Contents()
	if err != nil {
		return entities.FileContent{}, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	return entities.FileContent{
		Path:    path,
		Content: content,
		SHA:     file.Hash.String(),
	}, nil
}

func (p *LocalProviderRepository) CreateBranch(
	_ context.Context, _ entities.Repository, _, _ string,
) error {
	return ErrReadOnlyProvider
}

func (p *LocalProviderRepository) UpdateFile(
	_ context.Context, _ entities.Repository, _ entities.CommitInput,
) error {
	return ErrReadOnlyProvider
}

func (p *LocalProviderRepository) CreatePullRequest(
	_ context.Context, _ entities.Repository, _ entities.PullRequestInput,
) (*entities.PullRequest, error) {
	return nil, ErrReadOnlyProvider
}

func (p *LocalProviderRepository) DeleteBranch(
	_ context.Context, _ entities.Repository, _ string,
) error {
	return ErrReadOnlyProvider
}

func openRepository(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to open git repository at %q", dir), err)
	}
	return repo, nil
}

func branchTree(dir, branch string) (*object.Tree, error) {
	repo, err := openRepository(dir)
	if err != nil {
		return nil, err
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("branch %q not found", branch), err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to read head commit of %q", branch), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to read tree of %q", branch), err)
	}
	return tree, nil
}

func unavailable(detail string, cause error) error {
	return entities.NewError(entities.KindRepositoryUnavailable, detail, cause)
}
