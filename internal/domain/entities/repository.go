package entities

import (
	"errors"
	"fmt"
	"strings"

	gitforgeEntities "github.com/rios0rios0/gitforge/pkg/global/domain/entities"
)

var errEmptyRepositoryRef = errors.New("repository reference is empty")

// Repository is re-exported from gitforge. Organization holds the owner (user,
// organization or GitLab group path) and Project the Azure DevOps project.
type Repository = gitforgeEntities.Repository

// File is re-exported from gitforge.
type File = gitforgeEntities.File

// FullName joins the non-empty owner parts and the name, e.g. "octocat/app".
func FullName(repo Repository) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{repo.Organization, repo.Project, repo.Name} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

// RepositorySummary is the listing view of a repository written to callers.
type RepositorySummary struct {
	ID            string `json:"id"             yaml:"id"`
	Name          string `json:"name"           yaml:"name"`
	FullName      string `json:"full_name"      yaml:"full_name"`
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
	CloneURL      string `json:"clone_url"      yaml:"clone_url"`
	SSHURL        string `json:"ssh_url"        yaml:"ssh_url"`
	Provider      string `json:"provider"       yaml:"provider"`
}

// NewRepositorySummaries converts repositories into their listing view.
func NewRepositorySummaries(repos []Repository) []RepositorySummary {
	summaries := make([]RepositorySummary, 0, len(repos))
	for _, repo := range repos {
		summaries = append(summaries, RepositorySummary{
			ID:            repo.ID,
			Name:          repo.Name,
			FullName:      FullName(repo),
			DefaultBranch: repo.DefaultBranch,
			CloneURL:      repo.RemoteURL,
			SSHURL:        repo.SSHURL,
			Provider:      repo.ProviderName,
		})
	}
	return summaries
}

// RepositoryRef is what the caller typed: "owner/name" or a bare "name" that is
// addressed under the authenticated user.
type RepositoryRef struct {
	Owner string
	Name  string
}

// ParseRepositoryRef splits a reference like "octocat/hello-world".
// Local paths are kept whole in Name.
func ParseRepositoryRef(raw string) (RepositoryRef, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(raw), ".git")
	if cleaned == "" {
		return RepositoryRef{}, errEmptyRepositoryRef
	}
	if strings.HasPrefix(cleaned, ".") || strings.HasPrefix(cleaned, "/") {
		return RepositoryRef{Name: cleaned}, nil
	}

	owner, name, found := strings.Cut(cleaned, "/")
	if !found {
		return RepositoryRef{Name: cleaned}, nil
	}
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return RepositoryRef{}, fmt.Errorf("invalid repository reference %q, expected owner/name", raw)
	}
	return RepositoryRef{Owner: owner, Name: name}, nil
}

func (r RepositoryRef) String() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}

// Identity is the caller authenticated by the bearer token.
type Identity struct {
	Login string
	Name  string
}

// FileContent is a decoded file together with its concurrency token.
type FileContent struct {
	Path    string
	Content string
	SHA     string
}
