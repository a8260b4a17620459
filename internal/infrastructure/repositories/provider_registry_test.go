//go:build unit

package repositories_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainRepos "github.com/rios0rios0/depaudit/internal/domain/repositories"
	"github.com/rios0rios0/depaudit/internal/infrastructure/repositories"
	doubles "github.com/rios0rios0/depaudit/test/infrastructure/repositorydoubles"
)

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	t.Run("should pass token and base URL to the factory", func(t *testing.T) {
		t.Parallel()

		// given
		var gotToken, gotBaseURL string
		registry := repositories.NewProviderRegistry()
		registry.Register("github", func(token, baseURL string) (domainRepos.ProviderRepository, error) {
			gotToken, gotBaseURL = token, baseURL
			return &doubles.DummyProviderRepository{}, nil
		})

		// when
		provider, err := registry.Get("github", "tok", "https://ghe.example.com/api/v3")

		// then
		require.NoError(t, err)
		assert.NotNil(t, provider)
		assert.Equal(t, "tok", gotToken)
		assert.Equal(t, "https://ghe.example.com/api/v3", gotBaseURL)
	})

	t.Run("should fail for an unknown provider", func(t *testing.T) {
		t.Parallel()

		// given
		registry := repositories.NewProviderRegistry()

		// when
		_, err := registry.Get("bitbucket", "tok", "")

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider type")
	})

	t.Run("should wrap factory errors", func(t *testing.T) {
		t.Parallel()

		// given
		cause := errors.New("bad base url")
		registry := repositories.NewProviderRegistry()
		registry.Register("gitlab", func(_, _ string) (domainRepos.ProviderRepository, error) {
			return nil, cause
		})

		// when
		_, err := registry.Get("gitlab", "tok", "::")

		// then
		require.ErrorIs(t, err, cause)
	})

	t.Run("should list names sorted", func(t *testing.T) {
		t.Parallel()

		// given
		factory := func(_, _ string) (domainRepos.ProviderRepository, error) {
			return &doubles.DummyProviderRepository{}, nil
		}
		registry := repositories.NewProviderRegistry()
		registry.Register("gitlab", factory)
		registry.Register("github", factory)
		registry.Register("local", factory)

		// when
		names := registry.Names()

		// then
		assert.Equal(t, []string{"github", "gitlab", "local"}, names)
	})
}
