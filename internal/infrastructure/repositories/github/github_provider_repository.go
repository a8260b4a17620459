package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

const (
	providerName = "github"
	treeType     = "tree"
	headsPrefix  = "refs/heads/"
	perPage      = 100
)

var errDirectoryPath = errors.New("path is a directory, not a file")

// GitHubProviderRepository implements repositories.ProviderRepository for GitHub.
type GitHubProviderRepository struct {
	client *gh.Client
}

// NewGitHubProviderRepository creates a GitHub provider with the given token.
// baseURL, when set, is the full REST API root (e.g. https://ghe.example.com/api/v3/).
func NewGitHubProviderRepository(token, baseURL string) (repositories.ProviderRepository, error) {
	client := gh.NewClient(nil).WithAuthToken(token)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
		client.BaseURL = parsed
	}
	return &GitHubProviderRepository{client: client}, nil
}

func (p *GitHubProviderRepository) Name() string { return providerName }

func (p *GitHubProviderRepository) CurrentUser(ctx context.Context) (entities.Identity, error) {
	user, resp, err := p.client.Users.Get(ctx, "")
	if err != nil {
		if isStatus(resp, http.StatusUnauthorized) {
			return entities.Identity{}, entities.NewError(entities.KindAuthorizationMissing, "token rejected", err)
		}
		return entities.Identity{}, unavailable("failed to resolve authenticated user", err)
	}
	return entities.Identity{Login: user.GetLogin(), Name: user.GetName()}, nil
}

// DiscoverRepositories lists the repositories of an organization or user account,
// or the ones the token can see when owner is empty.
func (p *GitHubProviderRepository) DiscoverRepositories(
	ctx context.Context,
	owner string,
) ([]entities.Repository, error) {
	if owner == "" {
		return p.discoverOwnRepos(ctx)
	}

	var allRepos []entities.Repository
	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		repos, resp, err := p.client.Repositories.ListByOrg(ctx, owner, opts)
		if err != nil {
			if isStatus(resp, http.StatusUnauthorized) {
				return nil, entities.NewError(entities.KindAuthorizationMissing, "token rejected", err)
			}
			// not an organization, list the user's repos instead
			return p.discoverUserRepos(ctx, owner)
		}

		allRepos = appendRepos(allRepos, repos)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (p *GitHubProviderRepository) discoverUserRepos(
	ctx context.Context,
	user string,
) ([]entities.Repository, error) {
	var allRepos []entities.Repository
	opts := &gh.RepositoryListByUserOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
		Type:        "owner",
	}

	for {
		repos, resp, err := p.client.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, unavailable(fmt.Sprintf("failed to list repos for %q", user), err)
		}

		allRepos = appendRepos(allRepos, repos)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (p *GitHubProviderRepository) discoverOwnRepos(ctx context.Context) ([]entities.Repository, error) {
	var allRepos []entities.Repository
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
		Sort:        "updated",
	}

	for {
		repos, resp, err := p.client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			if isStatus(resp, http.StatusUnauthorized) {
				return nil, entities.NewError(entities.KindAuthorizationMissing, "token rejected", err)
			}
			return nil, unavailable("failed to list repositories of the authenticated user", err)
		}

		allRepos = appendRepos(allRepos, repos)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func appendRepos(allRepos []entities.Repository, repos []*gh.Repository) []entities.Repository {
	for _, r := range repos {
		allRepos = append(allRepos, toRepository(r))
	}
	return allRepos
}

func toRepository(r *gh.Repository) entities.Repository {
	defaultBranch := r.GetDefaultBranch()
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	return entities.Repository{
		ID:            strconv.FormatInt(r.GetID(), 10),
		Name:          r.GetName(),
		Organization:  r.GetOwner().GetLogin(),
		DefaultBranch: defaultBranch,
		RemoteURL:     r.GetCloneURL(),
		SSHURL:        r.GetSSHURL(),
		ProviderName:  providerName,
	}
}

func (p *GitHubProviderRepository) GetRepository(
	ctx context.Context,
	ref entities.RepositoryRef,
) (entities.Repository, error) {
	repo, _, err := p.client.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return entities.Repository{}, unavailable(fmt.Sprintf("failed to get repository %q", ref), err)
	}

	return toRepository(repo), nil
}

func (p *GitHubProviderRepository) ListTree(
	ctx context.Context,
	repo entities.Repository,
	branch string,
) ([]entities.File, error) {
	tree, _, err := p.client.Git.GetTree(
		ctx, repo.Organization, repo.Name,
		strings.TrimPrefix(branch, headsPrefix),
		true, // recursive
	)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to get tree of branch %q", branch), err)
	}
	if tree.GetTruncated() {
		logger.Warnf("[github] Tree of %s@%s is truncated, some manifests may be missed", entities.FullName(repo), branch)
	}

	files := make([]entities.File, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		files = append(files, entities.File{
			Path:     entry.GetPath(),
			ObjectID: entry.GetSHA(),
			IsDir:    entry.GetType() == treeType,
		})
	}
	return files, nil
}

func (p *GitHubProviderRepository) GetFile(
	ctx context.Context,
	repo entities.Repository,
	branch, path string,
) (entities.FileContent, error) {
	fileContent, _, _, err := p.client.Repositories.GetContents(
		ctx, repo.Organization, repo.Name, path,
		&gh.RepositoryContentGetOptions{Ref: strings.TrimPrefix(branch, headsPrefix)},
	)
	if err != nil {
		return entities.FileContent{}, unavailable(fmt.Sprintf("failed to get file %q", path), err)
	}
	if fileContent == nil {
		return entities.FileContent{}, unavailable(fmt.Sprintf("failed to get file %q", path), errDirectoryPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return entities.FileContent{}, fmt.Errorf("failed to decode file content: %w", err)
	}

	return entities.FileContent{
		Path:    path,
		Content: content,
		SHA:     fileContent.GetSHA(),
	}, nil
}

func (p *GitHubProviderRepository) CreateBranch(
	ctx context.Context,
	repo entities.Repository,
	branchName, fromBranch string,
) error {
	baseRef, _, err := p.client.Git.GetRef(
		ctx, repo.Organization, repo.Name, headsPrefix+strings.TrimPrefix(fromBranch, headsPrefix),
	)
	if err != nil {
		return fmt.Errorf("failed to get base branch ref: %w", err)
	}

	ref := headsPrefix + branchName
	_, _, err = p.client.Git.CreateRef(
		ctx, repo.Organization, repo.Name,
		&gh.Reference{
			Ref:    &ref,
			Object: &gh.GitObject{SHA: baseRef.Object.SHA},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

func (p *GitHubProviderRepository) UpdateFile(
	ctx context.Context,
	repo entities.Repository,
	input entities.CommitInput,
) error {
	branch := strings.TrimPrefix(input.BranchName, headsPrefix)
	sha := input.ExpectedSHA
	_, resp, err := p.client.Repositories.UpdateFile(
		ctx, repo.Organization, repo.Name, strings.TrimPrefix(input.Path, "/"),
		&gh.RepositoryContentFileOptions{
			Message: &input.CommitMessage,
			Content: []byte(input.Content),
			SHA:     &sha,
			Branch:  &branch,
		},
	)
	if err != nil {
		if isStaleSHA(resp, err) {
			return entities.NewError(
				entities.KindConcurrentModification,
				fmt.Sprintf("%q changed since sha %s was read", input.Path, input.ExpectedSHA),
				err,
			)
		}
		return fmt.Errorf("failed to update file: %w", err)
	}
	return nil
}

func (p *GitHubProviderRepository) CreatePullRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	sourceBranch := strings.TrimPrefix(input.SourceBranch, headsPrefix)
	targetBranch := strings.TrimPrefix(input.TargetBranch, headsPrefix)

	maintainerCanModify := true
	pr, _, err := p.client.PullRequests.Create(
		ctx, repo.Organization, repo.Name,
		&gh.NewPullRequest{
			Title:               &input.Title,
			Head:                &sourceBranch,
			Base:                &targetBranch,
			Body:                &input.Description,
			MaintainerCanModify: &maintainerCanModify,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	return &entities.PullRequest{
		ID:     pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		Status: pr.GetState(),
	}, nil
}

func (p *GitHubProviderRepository) DeleteBranch(
	ctx context.Context,
	repo entities.Repository,
	branchName string,
) error {
	_, err := p.client.Git.DeleteRef(ctx, repo.Organization, repo.Name, headsPrefix+strings.TrimPrefix(branchName, headsPrefix))
	if err != nil {
		return fmt.Errorf("failed to delete branch %q: %w", branchName, err)
	}
	return nil
}

func isStatus(resp *gh.Response, status int) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == status
}

// isStaleSHA recognises a contents write rejected because the blob moved on: 409
// for a sha that no longer matches, 422 when the file appeared after it was read.
func isStaleSHA(resp *gh.Response, err error) bool {
	if isStatus(resp, http.StatusConflict) {
		return true
	}
	return isStatus(resp, http.StatusUnprocessableEntity) && strings.Contains(err.Error(), "sha")
}

func unavailable(detail string, cause error) error {
	return entities.NewError(entities.KindRepositoryUnavailable, detail, cause)
}
