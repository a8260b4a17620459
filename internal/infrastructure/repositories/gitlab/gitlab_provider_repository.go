package gitlab

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

const (
	providerName   = "gitlab"
	perPage        = 100
	treeType       = "tree"
	base64Encoding = "base64"
	headsPrefix    = "refs/heads/"
)

// GitLabProviderRepository implements repositories.ProviderRepository for GitLab.
// The concurrency token of a file is its last_commit_id.
type GitLabProviderRepository struct {
	client *gl.Client
}

// NewGitLabProviderRepository creates a GitLab provider with the given token.
// baseURL, when set, points at a self-managed instance.
func NewGitLabProviderRepository(token, baseURL string) (repositories.ProviderRepository, error) {
	var options []gl.ClientOptionFunc
	if baseURL != "" {
		options = append(options, gl.WithBaseURL(baseURL))
	}
	client, err := gl.NewClient(token, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return &GitLabProviderRepository{client: client}, nil
}

func (p *GitLabProviderRepository) Name() string { return providerName }

func (p *GitLabProviderRepository) CurrentUser(ctx context.Context) (entities.Identity, error) {
	user, resp, err := p.client.Users.CurrentUser(gl.WithContext(ctx))
	if err != nil {
		if isStatus(resp, http.StatusUnauthorized) {
			return entities.Identity{}, entities.NewError(entities.KindAuthorizationMissing, "token rejected", err)
		}
		return entities.Identity{}, unavailable("failed to resolve authenticated user", err)
	}
	return entities.Identity{Login: user.Username, Name: user.Name}, nil
}

// DiscoverRepositories lists the projects of a group (including subgroups) or of
// a user, or the projects the token is a member of when owner is empty.
func (p *GitLabProviderRepository) DiscoverRepositories(
	ctx context.Context,
	owner string,
) ([]entities.Repository, error) {
	if owner == "" {
		return p.listProjects(ctx, "", &gl.ListProjectsOptions{
			ListOptions: gl.ListOptions{PerPage: perPage},
			Membership:  gl.Ptr(true),
			OrderBy:     gl.Ptr("last_activity_at"),
		})
	}

	var allRepos []entities.Repository
	opts := &gl.ListGroupProjectsOptions{
		ListOptions:      gl.ListOptions{PerPage: perPage},
		IncludeSubGroups: gl.Ptr(true),
	}

	for {
		projects, resp, err := p.client.Groups.ListGroupProjects(owner, opts, gl.WithContext(ctx))
		if err != nil {
			if isStatus(resp, http.StatusUnauthorized) {
				return nil, entities.NewError(entities.KindAuthorizationMissing, "token rejected", err)
			}
			// not a group, list the user's projects instead
			return p.listProjects(ctx, owner, &gl.ListProjectsOptions{
				ListOptions: gl.ListOptions{PerPage: perPage},
			})
		}

		allRepos = appendProjects(allRepos, projects)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

// listProjects pages through the projects of user, or the token's projects when
// user is empty.
func (p *GitLabProviderRepository) listProjects(
	ctx context.Context,
	user string,
	opts *gl.ListProjectsOptions,
) ([]entities.Repository, error) {
	var allRepos []entities.Repository

	for {
		var (
			projects []*gl.Project
			resp     *gl.Response
			err      error
		)
		if user == "" {
			projects, resp, err = p.client.Projects.ListProjects(opts, gl.WithContext(ctx))
		} else {
			projects, resp, err = p.client.Projects.ListUserProjects(user, opts, gl.WithContext(ctx))
		}
		if err != nil {
			if isStatus(resp, http.StatusUnauthorized) {
				return nil, entities.NewError(entities.KindAuthorizationMissing, "token rejected", err)
			}
			return nil, unavailable(fmt.Sprintf("failed to list projects for %q", user), err)
		}

		allRepos = appendProjects(allRepos, projects)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func appendProjects(allRepos []entities.Repository, projects []*gl.Project) []entities.Repository {
	for _, project := range projects {
		allRepos = append(allRepos, toRepository(project, ""))
	}
	return allRepos
}

// toRepository converts a project, using fallbackOwner when it carries no namespace.
func toRepository(project *gl.Project, fallbackOwner string) entities.Repository {
	owner := fallbackOwner
	if project.Namespace != nil && project.Namespace.FullPath != "" {
		owner = project.Namespace.FullPath
	}
	defaultBranch := "main"
	if project.DefaultBranch != "" {
		defaultBranch = project.DefaultBranch
	}
	return entities.Repository{
		ID:            strconv.FormatInt(project.ID, 10),
		Name:          project.Path,
		Organization:  owner,
		DefaultBranch: defaultBranch,
		RemoteURL:     project.HTTPURLToRepo,
		SSHURL:        project.SSHURLToRepo,
		ProviderName:  providerName,
	}
}

func (p *GitLabProviderRepository) GetRepository(
	ctx context.Context,
	ref entities.RepositoryRef,
) (entities.Repository, error) {
	project, _, err := p.client.Projects.GetProject(ref.String(), nil, gl.WithContext(ctx))
	if err != nil {
		return entities.Repository{}, unavailable(fmt.Sprintf("failed to get project %q", ref), err)
	}

	return toRepository(project, ref.Owner), nil
}

func (p *GitLabProviderRepository) ListTree(
	ctx context.Context,
	repo entities.Repository,
	branch string,
) ([]entities.File, error) {
	recursive := true
	var allFiles []entities.File
	opts := &gl.ListTreeOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
		Ref:         gl.Ptr(strings.TrimPrefix(branch, headsPrefix)),
		Recursive:   &recursive,
	}

	for {
		nodes, resp, err := p.client.Repositories.ListTree(
			entities.FullName(repo),
			opts,
			gl.WithContext(ctx),
		)
		if err != nil {
			return nil, unavailable(fmt.Sprintf("failed to list tree of branch %q", branch), err)
		}

		for _, node := range nodes {
			allFiles = append(allFiles, entities.File{
				Path:     node.Path,
				ObjectID: node.ID,
				IsDir:    node.Type == treeType,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

func (p *GitLabProviderRepository) GetFile(
	ctx context.Context,
	repo entities.Repository,
	branch, path string,
) (entities.FileContent, error) {
	file, _, err := p.client.RepositoryFiles.GetFile(
		entities.FullName(repo), path,
		&gl.GetFileOptions{Ref: gl.Ptr(strings.TrimPrefix(branch, headsPrefix))},
		gl.WithContext(ctx),
	)
	if err != nil {
		return entities.FileContent{}, unavailable(fmt.Sprintf("failed to get file %q", path), err)
	}

	content := file.Content
	if file.Encoding == base64Encoding {
		decoded, decodeErr := base64.StdEncoding.DecodeString(file.Content)
		if decodeErr != nil {
			return entities.FileContent{}, fmt.Errorf("failed to decode file content: %w", decodeErr)
		}
		content = string(decoded)
	}

	return entities.FileContent{
		Path:    path,
		Content: content,
		SHA:     file.LastCommitID,
	}, nil
}

func (p *GitLabProviderRepository) CreateBranch(
	ctx context.Context,
	repo entities.Repository,
	branchName, fromBranch string,
) error {
	_, _, err := p.client.Branches.CreateBranch(entities.FullName(repo), &gl.CreateBranchOptions{
		Branch: gl.Ptr(branchName),
		Ref:    gl.Ptr(strings.TrimPrefix(fromBranch, headsPrefix)),
	}, gl.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

func (p *GitLabProviderRepository) UpdateFile(
	ctx context.Context,
	repo entities.Repository,
	input entities.CommitInput,
) error {
	_, resp, err := p.client.RepositoryFiles.UpdateFile(
		entities.FullName(repo), strings.TrimPrefix(input.Path, "/"),
		&gl.UpdateFileOptions{
			Branch:        gl.Ptr(strings.TrimPrefix(input.BranchName, headsPrefix)),
			Content:       gl.Ptr(input.Content),
			CommitMessage: gl.Ptr(input.CommitMessage),
			LastCommitID:  gl.Ptr(input.ExpectedSHA),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		if isConflict(resp, err) {
			return entities.NewError(
				entities.KindConcurrentModification,
				fmt.Sprintf("%q changed since commit %s", input.Path, input.ExpectedSHA),
				err,
			)
		}
		return fmt.Errorf("failed to update file: %w", err)
	}
	return nil
}

func (p *GitLabProviderRepository) CreatePullRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	mr, _, err := p.client.MergeRequests.CreateMergeRequest(
		entities.FullName(repo),
		&gl.CreateMergeRequestOptions{
			Title:        gl.Ptr(input.Title),
			Description:  gl.Ptr(input.Description),
			SourceBranch: gl.Ptr(strings.TrimPrefix(input.SourceBranch, headsPrefix)),
			TargetBranch: gl.Ptr(strings.TrimPrefix(input.TargetBranch, headsPrefix)),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge request: %w", err)
	}

	return &entities.PullRequest{
		ID:     int(mr.IID),
		Title:  mr.Title,
		URL:    mr.WebURL,
		Status: mr.State,
	}, nil
}

func (p *GitLabProviderRepository) DeleteBranch(
	ctx context.Context,
	repo entities.Repository,
	branchName string,
) error {
	_, err := p.client.Branches.DeleteBranch(
		entities.FullName(repo), strings.TrimPrefix(branchName, headsPrefix), gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete branch %q: %w", branchName, err)
	}
	return nil
}

func isStatus(resp *gl.Response, status int) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == status
}

// isConflict recognises GitLab's stale last_commit_id answer, which arrives either
// as 409 or as 400 "... has changed since you started editing it".
func isConflict(resp *gl.Response, err error) bool {
	if isStatus(resp, http.StatusConflict) {
		return true
	}
	return isStatus(resp, http.StatusBadRequest) && strings.Contains(err.Error(), "changed since")
}

func unavailable(detail string, cause error) error {
	return entities.NewError(entities.KindRepositoryUnavailable, detail, cause)
}
