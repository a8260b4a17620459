package entities_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".depaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewDefaultSettings(t *testing.T) {
	t.Parallel()

	t.Run("should apply every default", func(t *testing.T) {
		t.Parallel()

		// given
		// when
		settings := entities.NewDefaultSettings()

		// then
		assert.Equal(t, "github", settings.Provider.Type)
		assert.Equal(t, "https://registry.npmjs.org", settings.Registries.NPMURL)
		assert.Equal(t, "https://pypi.org", settings.Registries.PyPIURL)
		assert.Equal(t, 8, settings.Audit.Concurrency)
		assert.Equal(t, 10*time.Second, settings.Audit.RequestTimeout)
		assert.Equal(t, 2*time.Minute, settings.Audit.AuditTimeout)
		assert.Equal(t, "master", settings.Audit.FallbackBranch)
		assert.Equal(t, ":8080", settings.Server.Listen)
	})
}

//nolint:tparallel // some subtests use t.Setenv which is incompatible with t.Parallel on parent
func TestNewSettings(t *testing.T) {
	t.Run("should parse a complete file", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
provider:
  type: gitlab
  token: glpat-inline
  base_url: https://gitlab.example.com
registries:
  npm_url: https://npm.example.com
audit:
  concurrency: 2
  request_timeout: 3s
  audit_timeout: 30s
  fallback_branch: trunk
server:
  listen: 127.0.0.1:9000
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "gitlab", settings.Provider.Type)
		assert.Equal(t, "glpat-inline", settings.Provider.Token)
		assert.Equal(t, "https://gitlab.example.com", settings.Provider.BaseURL)
		assert.Equal(t, "https://npm.example.com", settings.Registries.NPMURL)
		assert.Equal(t, "https://pypi.org", settings.Registries.PyPIURL)
		assert.Equal(t, 2, settings.Audit.Concurrency)
		assert.Equal(t, 3*time.Second, settings.Audit.RequestTimeout)
		assert.Equal(t, 30*time.Second, settings.Audit.AuditTimeout)
		assert.Equal(t, "trunk", settings.Audit.FallbackBranch)
		assert.Equal(t, "127.0.0.1:9000", settings.Server.Listen)
	})

	t.Run("should expand the token from the environment", func(t *testing.T) {
		// NOTE: cannot use t.Parallel() with t.Setenv()

		// given
		t.Setenv("DEPAUDIT_TEST_TOKEN", "ghp_from_env")
		path := writeConfig(t, "provider:\n  token: ${DEPAUDIT_TEST_TOKEN}\n")

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "ghp_from_env", settings.Provider.Token)
	})

	t.Run("should reject an unknown provider type", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, "provider:\n  type: bitbucket\n")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bitbucket")
	})

	t.Run("should reject a request timeout above the audit timeout", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, "audit:\n  request_timeout: 5m\n  audit_timeout: 1m\n")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
	})

	t.Run("should fail on malformed yaml", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, "provider: [unclosed\n")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "missing.yaml")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
	})
}

//nolint:tparallel // some subtests use t.Setenv which is incompatible with t.Parallel on parent
func TestResolveToken(t *testing.T) {
	t.Run("should return an inline token unchanged", func(t *testing.T) {
		t.Parallel()

		// given
		raw := "ghp_abc123xyz"

		// when
		result := entities.ResolveToken(raw)

		// then
		assert.Equal(t, "ghp_abc123xyz", result)
	})

	t.Run("should expand an embedded variable", func(t *testing.T) {
		// NOTE: cannot use t.Parallel() with t.Setenv()

		// given
		t.Setenv("DEPAUDIT_PARTIAL", "secret")

		// when
		result := entities.ResolveToken("prefix-${DEPAUDIT_PARTIAL}")

		// then
		assert.Equal(t, "prefix-secret", result)
	})

	t.Run("should read the token from a file path", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  file-token\n"), 0o600))

		// when
		result := entities.ResolveToken(path)

		// then
		assert.Equal(t, "file-token", result)
	})
}
