package azuredevops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

const (
	providerName  = "azuredevops"
	apiVersion    = "7.0"
	zeroObjectID  = "0000000000000000000000000000000000000000"
	clientTimeout = 30 * time.Second
)

var errMissingOrganization = errors.New("azuredevops requires provider.base_url (organization URL or name)")

// apiError is a non-2xx answer from the Azure DevOps REST API.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// AzureDevOpsProviderRepository implements repositories.ProviderRepository for
// Azure DevOps. Repositories are addressed as "project/repository".
type AzureDevOpsProviderRepository struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAzureDevOpsProviderRepository creates a provider for the organization given as
// baseURL, either a full URL or a bare organization name.
func NewAzureDevOpsProviderRepository(token, baseURL string) (repositories.ProviderRepository, error) {
	org := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if org == "" {
		return nil, errMissingOrganization
	}
	if !strings.HasPrefix(org, "https://") && !strings.HasPrefix(org, "http://") {
		org = "https://dev.azure.com/" + org
	}

	return &AzureDevOpsProviderRepository{
		baseURL:    org,
		token:      token,
		httpClient: &http.Client{Timeout: clientTimeout},
	}, nil
}

func (p *AzureDevOpsProviderRepository) Name() string { return providerName }

func (p *AzureDevOpsProviderRepository) CurrentUser(ctx context.Context) (entities.Identity, error) {
	var result struct {
		AuthenticatedUser struct {
			ProviderDisplayName string `json:"providerDisplayName"`
		} `json:"authenticatedUser"`
	}
	if err := p.doJSON(ctx, http.MethodGet, "/_apis/connectionData", nil, &result); err != nil {
		return entities.Identity{}, mapError("failed to resolve identity", err)
	}

	name := result.AuthenticatedUser.ProviderDisplayName
	return entities.Identity{Login: name, Name: name}, nil
}

// gitRepository is the repository resource of the Git REST API.
type gitRepository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch"`
	RemoteURL     string `json:"remoteUrl"`
	SSHURL        string `json:"sshUrl"`
	Project       struct {
		Name string `json:"name"`
	} `json:"project"`
}

func (r gitRepository) toEntity() entities.Repository {
	defaultBranch := strings.TrimPrefix(r.DefaultBranch, "refs/heads/")
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	return entities.Repository{
		ID:            r.ID,
		Name:          r.Name,
		Project:       r.Project.Name,
		DefaultBranch: defaultBranch,
		RemoteURL:     r.RemoteURL,
		SSHURL:        r.SSHURL,
		ProviderName:  providerName,
	}
}

// DiscoverRepositories lists the repositories of one project, or of the whole
// organization when owner is empty.
func (p *AzureDevOpsProviderRepository) DiscoverRepositories(
	ctx context.Context,
	owner string,
) ([]entities.Repository, error) {
	endpoint := "/_apis/git/repositories"
	if owner != "" {
		endpoint = "/" + url.PathEscape(owner) + endpoint
	}

	var result struct {
		Value []gitRepository `json:"value"`
	}
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, mapError(fmt.Sprintf("failed to list repositories of %q", owner), err)
	}

	repos := make([]entities.Repository, 0, len(result.Value))
	for _, repo := range result.Value {
		repos = append(repos, repo.toEntity())
	}
	return repos, nil
}

func (p *AzureDevOpsProviderRepository) GetRepository(
	ctx context.Context,
	ref entities.RepositoryRef,
) (entities.Repository, error) {
	var repo gitRepository
	endpoint := fmt.Sprintf("/%s/_apis/git/repositories/%s",
		url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &repo); err != nil {
		return entities.Repository{}, mapError(fmt.Sprintf("failed to get repository %q", ref.String()), err)
	}
	return repo.toEntity(), nil
}

type repositoryItem struct {
	ObjectID      string `json:"objectId"`
	GitObjectType string `json:"gitObjectType"`
	CommitID      string `json:"commitId"`
	Path          string `json:"path"`
	Content       string `json:"content"`
}

func (p *AzureDevOpsProviderRepository) ListTree(
	ctx context.Context,
	repo entities.Repository,
	branch string,
) ([]entities.File, error) {
	query := branchQuery(branch)
	query.Set("recursionLevel", "Full")

	var result struct {
		Value []repositoryItem `json:"value"`
	}
	if err := p.doJSON(ctx, http.MethodGet, p.repoEndpoint(repo, "/items", query), nil, &result); err != nil {
		return nil, mapError(fmt.Sprintf("failed to list tree of %s on %q", entities.FullName(repo), branch), err)
	}

	files := make([]entities.File, 0, len(result.Value))
	for _, item := range result.Value {
		path := strings.TrimPrefix(item.Path, "/")
		if path == "" {
			continue
		}
		files = append(files, entities.File{
			Path:     path,
			ObjectID: item.ObjectID,
			IsDir:    item.GitObjectType == "tree",
		})
	}
	return files, nil
}

func (p *AzureDevOpsProviderRepository) GetFile(
	ctx context.Context,
	repo entities.Repository,
	branch, path string,
) (entities.FileContent, error) {
	item, err := p.getItem(ctx, repo, branch, path)
	if err != nil {
		return entities.FileContent{}, mapError(fmt.Sprintf("failed to get %q on %q", path, branch), err)
	}
	return entities.FileContent{Path: path, Content: item.Content, SHA: item.ObjectID}, nil
}

func (p *AzureDevOpsProviderRepository) CreateBranch(
	ctx context.Context,
	repo entities.Repository,
	branchName, fromBranch string,
) error {
	head, err := p.branchHead(ctx, repo, fromBranch)
	if err != nil {
		return mapError(fmt.Sprintf("failed to resolve %q", fromBranch), err)
	}

	if err = p.updateRef(ctx, repo, branchName, zeroObjectID, head); err != nil {
		return mapError(fmt.Sprintf("failed to create branch %q", branchName), err)
	}
	return nil
}

// UpdateFile pushes one edit on input.BranchName. The blob on the branch must still
// be input.ExpectedSHA, and the push is anchored on the branch head that was read,
// so a concurrent push is rejected by the server.
func (p *AzureDevOpsProviderRepository) UpdateFile(
	ctx context.Context,
	repo entities.Repository,
	input entities.CommitInput,
) error {
	item, err := p.getItem(ctx, repo, input.BranchName, input.Path)
	if err != nil {
		return mapError(fmt.Sprintf("failed to read %q before commit", input.Path), err)
	}
	if item.ObjectID != input.ExpectedSHA {
		return entities.NewError(
			entities.KindConcurrentModification,
			fmt.Sprintf("%q is %s, expected %s", input.Path, item.ObjectID, input.ExpectedSHA),
			nil,
		)
	}

	head, err := p.branchHead(ctx, repo, input.BranchName)
	if err != nil {
		return mapError(fmt.Sprintf("failed to resolve %q", input.BranchName), err)
	}

	push := map[string]any{
		"refUpdates": []map[string]string{{
			"name":        "refs/heads/" + input.BranchName,
			"oldObjectId": head,
		}},
		"commits": []map[string]any{{
			"comment": input.CommitMessage,
			"parents": []string{head},
			"changes": []map[string]any{{
				"changeType": "edit",
				"item":       map[string]string{"path": "/" + strings.TrimPrefix(input.Path, "/")},
				"newContent": map[string]string{
					"content":     base64.StdEncoding.EncodeToString([]byte(input.Content)),
					"contentType": "base64encoded",
				},
			}},
		}},
	}
	if err = p.doJSON(ctx, http.MethodPost, p.repoEndpoint(repo, "/pushes", nil), push, nil); err != nil {
		if isStatus(err, http.StatusConflict) {
			return entities.NewError(entities.KindConcurrentModification, "push rejected by the server", err)
		}
		return fmt.Errorf("failed to push changes: %w", err)
	}
	return nil
}

func (p *AzureDevOpsProviderRepository) CreatePullRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	body := map[string]string{
		"sourceRefName": "refs/heads/" + input.SourceBranch,
		"targetRefName": "refs/heads/" + input.TargetBranch,
		"title":         input.Title,
		"description":   input.Description,
	}

	var pr struct {
		ID     int    `json:"pullRequestId"`
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := p.doJSON(ctx, http.MethodPost, p.repoEndpoint(repo, "/pullrequests", nil), body, &pr); err != nil {
		return nil, fmt.Errorf("failed to create PR: %w", err)
	}

	logger.Infof("[azuredevops] Created PR #%d in %s", pr.ID, entities.FullName(repo))
	webURL := fmt.Sprintf("%s/%s/_git/%s/pullrequest/%d",
		p.baseURL, url.PathEscape(repo.Project), url.PathEscape(repo.Name), pr.ID)
	return &entities.PullRequest{
		ID:     pr.ID,
		Title:  pr.Title,
		URL:    webURL,
		Status: pr.Status,
	}, nil
}

func (p *AzureDevOpsProviderRepository) DeleteBranch(
	ctx context.Context,
	repo entities.Repository,
	branchName string,
) error {
	head, err := p.branchHead(ctx, repo, branchName)
	if err != nil {
		return mapError(fmt.Sprintf("failed to resolve %q", branchName), err)
	}
	if err = p.updateRef(ctx, repo, branchName, head, zeroObjectID); err != nil {
		return fmt.Errorf("failed to delete branch %q: %w", branchName, err)
	}
	return nil
}

func (p *AzureDevOpsProviderRepository) getItem(
	ctx context.Context,
	repo entities.Repository,
	branch, path string,
) (repositoryItem, error) {
	query := branchQuery(branch)
	query.Set("path", "/"+strings.TrimPrefix(path, "/"))
	query.Set("includeContent", "true")
	query.Set("$format", "json")

	var item repositoryItem
	err := p.doJSON(ctx, http.MethodGet, p.repoEndpoint(repo, "/items", query), nil, &item)
	return item, err
}

func (p *AzureDevOpsProviderRepository) branchHead(
	ctx context.Context,
	repo entities.Repository,
	branch string,
) (string, error) {
	query := url.Values{}
	query.Set("filter", "heads/"+branch)

	var result struct {
		Value []struct {
			Name     string `json:"name"`
			ObjectID string `json:"objectId"`
		} `json:"value"`
	}
	if err := p.doJSON(ctx, http.MethodGet, p.repoEndpoint(repo, "/refs", query), nil, &result); err != nil {
		return "", err
	}
	for _, ref := range result.Value {
		if ref.Name == "refs/heads/"+branch {
			return ref.ObjectID, nil
		}
	}
	return "", &apiError{StatusCode: http.StatusNotFound, Body: fmt.Sprintf("branch %q not found", branch)}
}

func (p *AzureDevOpsProviderRepository) updateRef(
	ctx context.Context,
	repo entities.Repository,
	branch, oldObjectID, newObjectID string,
) error {
	body := []map[string]string{{
		"name":        "refs/heads/" + branch,
		"oldObjectId": oldObjectID,
		"newObjectId": newObjectID,
	}}

	var result struct {
		Value []struct {
			Success       bool   `json:"success"`
			CustomMessage string `json:"customMessage"`
		} `json:"value"`
	}
	if err := p.doJSON(ctx, http.MethodPost, p.repoEndpoint(repo, "/refs", nil), body, &result); err != nil {
		return err
	}
	for _, update := range result.Value {
		if !update.Success {
			return fmt.Errorf("ref update of %q rejected: %s", branch, update.CustomMessage)
		}
	}
	return nil
}

func (p *AzureDevOpsProviderRepository) repoEndpoint(repo entities.Repository, suffix string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)
	return fmt.Sprintf("/%s/_apis/git/repositories/%s%s?%s",
		url.PathEscape(repo.Project), url.PathEscape(repo.Name), suffix, query.Encode())
}

func branchQuery(branch string) url.Values {
	query := url.Values{}
	query.Set("versionDescriptor.version", branch)
	query.Set("versionDescriptor.versionType", "branch")
	return query
}

// doJSON sends body as JSON and decodes the answer into out when out is not nil.
func (p *AzureDevOpsProviderRepository) doJSON(
	ctx context.Context,
	method, endpoint string,
	body, out any,
) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	if !strings.Contains(endpoint, "api-version=") {
		endpoint += "?api-version=" + apiVersion
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Basic auth with the PAT as password
	auth := base64.StdEncoding.EncodeToString([]byte(":" + p.token))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func isStatus(err error, status int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func mapError(detail string, err error) error {
	if isStatus(err, http.StatusUnauthorized) {
		return entities.NewError(entities.KindAuthorizationMissing, detail, err)
	}
	return entities.NewError(entities.KindRepositoryUnavailable, detail, err)
}
