package github_test

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
	"github.com/rios0rios0/depaudit/internal/infrastructure/repositories/github"
)

func newProvider(t *testing.T, mux *http.ServeMux) repositories.ProviderRepository {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	provider, err := github.NewGitHubProviderRepository("test-token", server.URL)
	require.NoError(t, err)
	return provider
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGitHubProviderRepository(t *testing.T) {
	t.Parallel()

	repo := entities.Repository{Organization: "octocat", Name: "app", DefaultBranch: "main", ProviderName: "github"}

	t.Run("should resolve the authenticated user", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"login":"octocat","name":"The Octocat"}`)
		})
		provider := newProvider(t, mux)

		// when
		identity, err := provider.CurrentUser(context.Background())

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.Identity{Login: "octocat", Name: "The Octocat"}, identity)
	})

	t.Run("should report a rejected token as AuthorizationMissing", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Bad credentials"}`)
		})
		provider := newProvider(t, mux)

		// when
		_, err := provider.CurrentUser(context.Background())

		// then
		require.ErrorIs(t, err, entities.ErrAuthorizationMissing)
	})

	t.Run("should resolve a repository and its default branch", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/octocat/app", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"name":"app","owner":{"login":"octocat"},"default_branch":"develop"}`)
		})
		provider := newProvider(t, mux)

		// when
		resolved, err := provider.GetRepository(context.Background(), entities.RepositoryRef{Owner: "octocat", Name: "app"})

		// then
		require.NoError(t, err)
		assert.Equal(t, "octocat/app", entities.FullName(resolved))
		assert.Equal(t, "develop", resolved.DefaultBranch)
		assert.Equal(t, "github", resolved.ProviderName)
	})

	t.Run("should report a missing repository as RepositoryUnavailable", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/octocat/gone", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
		})
		provider := newProvider(t, mux)

		// when
		_, err := provider.GetRepository(context.Background(), entities.RepositoryRef{Owner: "octocat", Name: "gone"})

		// then
		require.ErrorIs(t, err, entities.ErrRepositoryUnavailable)
	})

	t.Run("should list the recursive tree of a branch", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/octocat/app/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("recursive"))
			writeJSON(w, http.StatusOK, `{"sha":"root","truncated":false,"tree":[
				{"path":"package.json","type":"blob","sha":"aaa"},
				{"path":"web","type":"tree","sha":"bbb"},
				{"path":"web/requirements.txt","type":"blob","sha":"ccc"}
			]}`)
		})
		provider := newProvider(t, mux)

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

	t.Run("should decode file content together with its sha", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/octocat/app/contents/package.json", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			writeJSON(w, http.StatusOK, `{"type":"file","path":"package.json","sha":"abc123",
				"encoding":"base64","content":"eyJuYW1lIjoiYXBwIn0="}`)
		})
		provider := newProvider(t, mux)

		// when
		file, err := provider.GetFile(context.Background(), repo, "main", "package.json")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.FileContent{Path: "package.json", Content: `{"name":"app"}`, SHA: "abc123"}, file)
	})

	t.Run("should write the file conditioned on the expected sha", func(t *testing.T) {
		t.Parallel()

		// given
		var body map[string]any
		mux := http.NewServeMux()
		mux.HandleFunc("PUT /repos/octocat/app/contents/package.json", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusOK, `{"content":{"sha":"def456"},"commit":{"sha":"c0ffee"}}`)
		})
		provider := newProvider(t, mux)

		// when
		err := provider.UpdateFile(context.Background(), repo, entities.CommitInput{
			BranchName:    "dependency-updates-20240301123045-deadbeef",
			Path:          "package.json",
			Content:       `{"name":"app"}`,
			ExpectedSHA:   "abc123",
			CommitMessage: "chore(deps): update npm dependencies in package.json",
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, "abc123", body["sha"])
		assert.Equal(t, "dependency-updates-20240301123045-deadbeef", body["branch"])
		assert.Equal(t, "eyJuYW1lIjoiYXBwIn0=", body["content"])
	})

	t.Run("should report a sha conflict as ConcurrentModification", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("PUT /repos/octocat/app/contents/package.json", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusConflict, `{"message":"package.json does not match abc123"}`)
		})
		provider := newProvider(t, mux)

		// when
		err := provider.UpdateFile(context.Background(), repo, entities.CommitInput{
			BranchName:  "dependency-updates-20240301123045-deadbeef",
			Path:        "package.json",
			ExpectedSHA: "abc123",
		})

		// then
		require.ErrorIs(t, err, entities.ErrConcurrentModification)
	})

	t.Run("should report a file created after it was read as ConcurrentModification", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("PUT /repos/octocat/app/contents/package.json", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, `{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`)
		})
		provider := newProvider(t, mux)

		// when
		err := provider.UpdateFile(context.Background(), repo, entities.CommitInput{
			BranchName: "dependency-updates-20240301123045-deadbeef",
			Path:       "package.json",
		})

		// then
		require.ErrorIs(t, err, entities.ErrConcurrentModification)
	})

	t.Run("should create a branch from the head of the base branch", func(t *testing.T) {
		t.Parallel()

		// given
		var created map[string]any
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/octocat/app/git/ref/heads/main", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ref":"refs/heads/main","object":{"sha":"head-sha","type":"commit"}}`)
		})
		mux.HandleFunc("POST /repos/octocat/app/git/refs", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			writeJSON(w, http.StatusCreated, `{"ref":"refs/heads/feature","object":{"sha":"head-sha"}}`)
		})
		provider := newProvider(t, mux)

		// when
		err := provider.CreateBranch(context.Background(), repo, "feature", "main")

		// then
		require.NoError(t, err)
		assert.Equal(t, "refs/heads/feature", created["ref"])
		assert.Equal(t, "head-sha", created["sha"])
	})

	t.Run("should open a pull request and return its number and url", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("POST /repos/octocat/app/pulls", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusCreated, `{"number":42,"title":"chore(deps): update","state":"open",
				"html_url":"https://github.com/octocat/app/pull/42"}`)
		})
		provider := newProvider(t, mux)

		// when
		pr, err := provider.CreatePullRequest(context.Background(), repo, entities.PullRequestInput{
			SourceBranch: "feature",
			TargetBranch: "main",
			Title:        "chore(deps): update",
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, 42, pr.ID)
		assert.Equal(t, "https://github.com/octocat/app/pull/42", pr.URL)
	})

	t.Run("should delete a branch ref", func(t *testing.T) {
		t.Parallel()

		// given
		deleted := false
		mux := http.NewServeMux()
		mux.HandleFunc("DELETE /repos/octocat/app/git/refs/heads/feature", func(w http.ResponseWriter, _ *http.Request) {
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		})
		provider := newProvider(t, mux)

		// when
		err := provider.DeleteBranch(context.Background(), repo, "feature")

		// then
		require.NoError(t, err)
		assert.True(t, deleted)
	})
}

func TestGitHubProviderRepositoryDiscoverRepositories(t *testing.T) {
	t.Parallel()

	t.Run("should page through the repositories of the authenticated user", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /user/repos", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "updated", r.URL.Query().Get("sort"))
			if r.URL.Query().Get("page") == "2" {
				writeJSON(w, http.StatusOK, `[{"id":2,"name":"lib","owner":{"login":"acme"},"default_branch":"master"}]`)
				return
			}
			w.Header().Set("Link", `<http://`+r.Host+`/user/repos?page=2>; rel="next"`)
			writeJSON(w, http.StatusOK, `[{"id":1,"name":"app","owner":{"login":"octocat"},
				"clone_url":"https://github.com/octocat/app.git","ssh_url":"git@github.com:octocat/app.git"}]`)
		})
		provider := newProvider(t, mux)

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "")

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.Repository{
			{
				ID: "1", Name: "app", Organization: "octocat", DefaultBranch: "main",
				RemoteURL: "https://github.com/octocat/app.git", SSHURL: "git@github.com:octocat/app.git",
				ProviderName: "github",
			},
			{ID: "2", Name: "lib", Organization: "acme", DefaultBranch: "master", ProviderName: "github"},
		}, repos)
	})

	t.Run("should list the repositories of an organization", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /orgs/acme/repos", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `[{"id":3,"name":"api","owner":{"login":"acme"}}]`)
		})
		provider := newProvider(t, mux)

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "acme")

		// then
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "acme/api", entities.FullName(repos[0]))
	})

	t.Run("should fall back to the user account when the owner is not an organization", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /orgs/octocat/repos", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
		})
		mux.HandleFunc("GET /users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "owner", r.URL.Query().Get("type"))
			writeJSON(w, http.StatusOK, `[{"id":1,"name":"app","owner":{"login":"octocat"}}]`)
		})
		provider := newProvider(t, mux)

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "octocat")

		// then
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "app", repos[0].Name)
	})

	t.Run("should report a rejected token as AuthorizationMissing", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /user/repos", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Bad credentials"}`)
		})
		provider := newProvider(t, mux)

		// when
		_, err := provider.DiscoverRepositories(context.Background(), "")

		// then
		require.ErrorIs(t, err, entities.ErrAuthorizationMissing)
	})
}
