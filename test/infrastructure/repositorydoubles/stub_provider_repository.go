//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"sync"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

// SpyProviderRepository implements repositories.ProviderRepository as a configurable spy.
// Configure the response fields for the methods your test exercises,
// then inspect the call-tracking fields to verify behavior. It is safe for the
// concurrent reads an audit performs.
type SpyProviderRepository struct {
	mu sync.Mutex

	// --- identity ---
	ProviderName   string
	Identity       entities.Identity
	CurrentUserErr error
	// spy: number of identity lookups
	CurrentUserCalls int

	// --- DiscoverRepositories ---
	Discovered  []entities.Repository
	DiscoverErr error
	// spy: owners listed
	DiscoveredOwners []string

	// --- GetRepository ---
	Repository       entities.Repository
	GetRepositoryErr error
	// spy: references requested
	RequestedRefs []entities.RepositoryRef

	// --- ListTree ---
	Trees        map[string][]entities.File // branch -> files
	ListTreeErrs map[string]error           // branch -> error
	// spy: branches listed, in order
	ListedBranches []string

	// --- GetFile ---
	Files      map[string]entities.FileContent // path -> content
	GetFileErr error
	// spy: "branch:path" of every fetch
	FetchedFiles []string

	// --- CreateBranch ---
	CreateBranchErr error
	// spy: branch names created
	CreatedBranches []string

	// --- UpdateFile ---
	UpdateFileErr error
	// spy: inputs received
	CommitInputs []entities.CommitInput

	// --- CreatePullRequest ---
	CreatedPR   *entities.PullRequest
	CreatePRErr error
	// spy: inputs received
	PRInputs []entities.PullRequestInput

	// --- DeleteBranch ---
	DeleteBranchErr error
	// spy: branch names deleted
	DeletedBranches []string
}

var _ repositories.ProviderRepository = (*SpyProviderRepository)(nil)

func (p *SpyProviderRepository) Name() string {
	if p.ProviderName == "" {
		return "spy"
	}
	return p.ProviderName
}

func (p *SpyProviderRepository) CurrentUser(_ context.Context) (entities.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentUserCalls++
	return p.Identity, p.CurrentUserErr
}

func (p *SpyProviderRepository) DiscoverRepositories(
	_ context.Context,
	owner string,
) ([]entities.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DiscoveredOwners = append(p.DiscoveredOwners, owner)
	return p.Discovered, p.DiscoverErr
}

func (p *SpyProviderRepository) GetRepository(
	_ context.Context,
	ref entities.RepositoryRef,
) (entities.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RequestedRefs = append(p.RequestedRefs, ref)
	if p.GetRepositoryErr != nil {
		return entities.Repository{}, p.GetRepositoryErr
	}
	repo := p.Repository
	if repo.Name == "" {
		repo = entities.Repository{Organization: ref.Owner, Name: ref.Name, DefaultBranch: "main", ProviderName: p.Name()}
	}
	return repo, nil
}

func (p *SpyProviderRepository) ListTree(
	_ context.Context,
	_ entities.Repository,
	branch string,
) ([]entities.File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListedBranches = append(p.ListedBranches, branch)
	if err, ok := p.ListTreeErrs[branch]; ok {
		return nil, err
	}
	return p.Trees[branch], nil
}

func (p *SpyProviderRepository) GetFile(
	_ context.Context,
	_ entities.Repository,
	branch, path string,
) (entities.FileContent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FetchedFiles = append(p.FetchedFiles, branch+":"+path)
	if content, ok := p.Files[path]; ok {
		return content, nil
	}
	if p.GetFileErr != nil {
		return entities.FileContent{}, p.GetFileErr
	}
	return entities.FileContent{}, fmt.Errorf("file not found: %s", path)
}

func (p *SpyProviderRepository) CreateBranch(
	_ context.Context,
	_ entities.Repository,
	branchName, _ string,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CreatedBranches = append(p.CreatedBranches, branchName)
	return p.CreateBranchErr
}

func (p *SpyProviderRepository) UpdateFile(
	_ context.Context,
	_ entities.Repository,
	input entities.CommitInput,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CommitInputs = append(p.CommitInputs, input)
	return p.UpdateFileErr
}

func (p *SpyProviderRepository) CreatePullRequest(
	_ context.Context,
	_ entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PRInputs = append(p.PRInputs, input)
	if p.CreatePRErr != nil {
		return nil, p.CreatePRErr
	}
	if p.CreatedPR != nil {
		return p.CreatedPR, nil
	}
	return &entities.PullRequest{
		ID:    1,
		Title: input.Title,
		URL:   "https://example.com/pr/1",
	}, nil
}

func (p *SpyProviderRepository) DeleteBranch(
	_ context.Context,
	_ entities.Repository,
	branchName string,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DeletedBranches = append(p.DeletedBranches, branchName)
	return p.DeleteBranchErr
}

// DummyProviderRepository is a no-op implementation of repositories.ProviderRepository.
type DummyProviderRepository struct{}

var _ repositories.ProviderRepository = (*DummyProviderRepository)(nil)

func (d *DummyProviderRepository) Name() string { return "dummy" }

func (d *DummyProviderRepository) CurrentUser(_ context.Context) (entities.Identity, error) {
	return entities.Identity{}, nil
}

func (d *DummyProviderRepository) DiscoverRepositories(
	_ context.Context, _ string,
) ([]entities.Repository, error) {
	return nil, nil
}

func (d *DummyProviderRepository) GetRepository(
	_ context.Context, _ entities.RepositoryRef,
) (entities.Repository, error) {
	return entities.Repository{}, nil
}

func (d *DummyProviderRepository) ListTree(
	_ context.Context, _ entities.Repository, _ string,
) ([]entities.File, error) {
	return nil, nil
}

func (d *DummyProviderRepository) GetFile(
	_ context.Context, _ entities.Repository, _, _ string,
) (entities.FileContent, error) {
	return entities.FileContent{}, nil
}

func (d *DummyProviderRepository) CreateBranch(
	_ context.Context, _ entities.Repository, _, _ string,
) error {
	return nil
}

func (d *DummyProviderRepository) UpdateFile(
	_ context.Context, _ entities.Repository, _ entities.CommitInput,
) error {
	return nil
}

func (d *DummyProviderRepository) CreatePullRequest(
	_ context.Context, _ entities.Repository, _ entities.PullRequestInput,
) (*entities.PullRequest, error) {
	return nil, nil //nolint:nilnil // dummy no-op
}

func (d *DummyProviderRepository) DeleteBranch(
	_ context.Context, _ entities.Repository, _ string,
) error {
	return nil
}
