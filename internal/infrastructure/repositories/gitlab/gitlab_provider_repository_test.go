package gitlab_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
	"github.com/rios0rios0/depaudit/internal/infrastructure/repositories/gitlab"
)

// route answers requests keyed by "METHOD escaped-path".
type route func(w http.ResponseWriter, r *http.Request)

func newProvider(t *testing.T, routes map[string]route) repositories.ProviderRepository {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := routes[r.Method+" "+r.URL.EscapedPath()]
		if !ok {
			writeJSON(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	provider, err := gitlab.NewGitLabProviderRepository("test-token", server.URL)
	require.NoError(t, err)
	return provider
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGitLabProviderRepository(t *testing.T) {
	t.Parallel()

	repo := entities.Repository{Organization: "octocat", Name: "app", DefaultBranch: "main", ProviderName: "gitlab"}

	t.Run("should resolve the authenticated user", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/user": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-token", r.Header.Get("Private-Token"))
				writeJSON(w, http.StatusOK, `{"id":1,"username":"octocat","name":"The Octocat"}`)
			},
		})

		// when
		identity, err := provider.CurrentUser(context.Background())

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.Identity{Login: "octocat", Name: "The Octocat"}, identity)
	})

	t.Run("should report a rejected token as AuthorizationMissing", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/user": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, `{"message":"401 Unauthorized"}`)
			},
		})

		// when
		_, err := provider.CurrentUser(context.Background())

		// then
		require.ErrorIs(t, err, entities.ErrAuthorizationMissing)
	})

	t.Run("should resolve a project with its namespace as owner", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/projects/group%2Fsub%2Fapp": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":9,"path":"app","default_branch":"develop",
					"namespace":{"full_path":"group/sub"}}`)
			},
		})

		// when
		resolved, err := provider.GetRepository(
			context.Background(), entities.RepositoryRef{Owner: "group/sub", Name: "app"},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, "group/sub/app", entities.FullName(resolved))
		assert.Equal(t, "develop", resolved.DefaultBranch)
	})

	t.Run("should report a missing project as RepositoryUnavailable", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{})

		// when
		_, err := provider.GetRepository(context.Background(), entities.RepositoryRef{Owner: "octocat", Name: "gone"})

		// then
		require.ErrorIs(t, err, entities.ErrRepositoryUnavailable)
	})

	t.Run("should follow tree pagination", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/projects/octocat%2Fapp/repository/tree": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "main", r.URL.Query().Get("ref"))
				assert.Equal(t, "true", r.URL.Query().Get("recursive"))
				if r.URL.Query().Get("page") == "2" {
					writeJSON(w, http.StatusOK, `[{"id":"ccc","path":"web/requirements.txt","type":"blob"}]`)
					return
				}
				w.Header().Set("X-Next-Page", "2")
				writeJSON(w, http.StatusOK, `[
					{"id":"aaa","path":"package.json","type":"blob"},
					{"id":"bbb","path":"web","type":"tree"}
				]`)
			},
		})

		// when
		files, err := provider.ListTree(context.Background(), repo, "refs/heads/main")

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.File{
			{Path: "package.json", ObjectID: "aaa"},
			{Path: "web", ObjectID: "bbb", IsDir: true},
			{Path: "web/requirements.txt", ObjectID: "ccc"},
		}, files)
	})

	t.Run("should decode the file and use its last commit as token", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/projects/octocat%2Fapp/repository/files/package.json": func(
				w http.ResponseWriter, r *http.Request,
			) {
				assert.Equal(t, "main", r.URL.Query().Get("ref"))
				writeJSON(w, http.StatusOK, `{"file_path":"package.json","encoding":"base64",
					"content":"eyJuYW1lIjoiYXBwIn0=","last_commit_id":"c1"}`)
			},
		})

		// when
		file, err := provider.GetFile(context.Background(), repo, "main", "package.json")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.FileContent{Path: "package.json", Content: `{"name":"app"}`, SHA: "c1"}, file)
	})

	t.Run("should send the expected commit with the update", func(t *testing.T) {
		t.Parallel()

		// given
		var body map[string]any
		provider := newProvider(t, map[string]route{
			"PUT /api/v4/projects/octocat%2Fapp/repository/files/package.json": func(
				w http.ResponseWriter, r *http.Request,
			) {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				writeJSON(w, http.StatusOK, `{"file_path":"package.json","branch":"feature"}`)
			},
		})

		// when
		err := provider.UpdateFile(context.Background(), repo, entities.CommitInput{
			BranchName:    "feature",
			Path:          "package.json",
			Content:       `{"name":"app"}`,
			ExpectedSHA:   "c1",
			CommitMessage: "chore(deps): update",
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, "c1", body["last_commit_id"])
		assert.Equal(t, "feature", body["branch"])
	})

	t.Run("should report a stale last commit as ConcurrentModification", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"PUT /api/v4/projects/octocat%2Fapp/repository/files/package.json": func(
				w http.ResponseWriter, _ *http.Request,
			) {
				writeJSON(w, http.StatusBadRequest,
					`{"message":"You are attempting to update a file that has changed since you started editing it."}`)
			},
		})

		// when
		err := provider.UpdateFile(context.Background(), repo, entities.CommitInput{
			BranchName:  "feature",
			Path:        "package.json",
			ExpectedSHA: "c1",
		})

		// then
		require.ErrorIs(t, err, entities.ErrConcurrentModification)
	})

	t.Run("should open a merge request", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"POST /api/v4/projects/octocat%2Fapp/merge_requests": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusCreated, `{"id":100,"iid":7,"title":"chore(deps): update","state":"opened",
					"web_url":"https://gitlab.com/octocat/app/-/merge_requests/7"}`)
			},
		})

		// when
		pr, err := provider.CreatePullRequest(context.Background(), repo, entities.PullRequestInput{
			SourceBranch: "feature",
			TargetBranch: "main",
			Title:        "chore(deps): update",
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, 7, pr.ID)
		assert.Equal(t, "https://gitlab.com/octocat/app/-/merge_requests/7", pr.URL)
	})

	t.Run("should delete a branch", func(t *testing.T) {
		t.Parallel()

		// given
		deleted := false
		provider := newProvider(t, map[string]route{
			"DELETE /api/v4/projects/octocat%2Fapp/repository/branches/feature": func(
				w http.ResponseWriter, _ *http.Request,
			) {
				deleted = true
				w.WriteHeader(http.StatusNoContent)
			},
		})

		// when
		err := provider.DeleteBranch(context.Background(), repo, "refs/heads/feature")

		// then
		require.NoError(t, err)
		assert.True(t, deleted)
	})
}

func TestGitLabProviderRepositoryDiscoverRepositories(t *testing.T) {
	t.Parallel()

	t.Run("should page through the projects the token is a member of", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/projects": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "true", r.URL.Query().Get("membership"))
				if r.URL.Query().Get("page") == "2" {
					writeJSON(w, http.StatusOK, `[{"id":2,"path":"lib","namespace":{"full_path":"acme"}}]`)
					return
				}
				w.Header().Set("X-Next-Page", "2")
				writeJSON(w, http.StatusOK, `[{"id":1,"path":"app","default_branch":"develop",
					"namespace":{"full_path":"group/sub"},
					"http_url_to_repo":"https://gitlab.com/group/sub/app.git",
					"ssh_url_to_repo":"git@gitlab.com:group/sub/app.git"}]`)
			},
		})

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "")

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.Repository{
			{
				ID: "1", Name: "app", Organization: "group/sub", DefaultBranch: "develop",
				RemoteURL: "https://gitlab.com/group/sub/app.git", SSHURL: "git@gitlab.com:group/sub/app.git",
				ProviderName: "gitlab",
			},
			{ID: "2", Name: "lib", Organization: "acme", DefaultBranch: "main", ProviderName: "gitlab"},
		}, repos)
	})

	t.Run("should list the projects of a group and its subgroups", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/groups/acme/projects": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "true", r.URL.Query().Get("include_subgroups"))
				writeJSON(w, http.StatusOK, `[{"id":3,"path":"api","namespace":{"full_path":"acme/backend"}}]`)
			},
		})

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "acme")

		// then
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "acme/backend/api", entities.FullName(repos[0]))
	})

	t.Run("should fall back to the user's projects when the owner is not a group", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /api/v4/users/octocat/projects": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `[{"id":1,"path":"app","namespace":{"full_path":"octocat"}}]`)
			},
		})

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "octocat")

		// then
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "octocat/app", entities.FullName(repos[0]))
	})
}
