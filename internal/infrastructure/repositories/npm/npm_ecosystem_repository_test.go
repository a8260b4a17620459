package npm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/infrastructure/repositories/npm"
)

func TestNPMEcosystemRepository(t *testing.T) {
	t.Parallel()

	t.Run("should describe the npm ecosystem", func(t *testing.T) {
		t.Parallel()

		// given
		repo := npm.NewNPMEcosystemRepository("https://registry.npmjs.org", time.Second)

		// when
		ecosystem := repo.Ecosystem()
		filename := repo.ManifestFilename()

		// then
		assert.Equal(t, entities.EcosystemNPM, ecosystem)
		assert.Equal(t, "package.json", filename)
	})

	t.Run("should return the version of the latest dist-tag", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/lodash/latest", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"lodash","version":"4.17.21"}`))
		}))
		defer server.Close()
		repo := npm.NewNPMEcosystemRepository(server.URL+"/", time.Second)

		// when
		version, err := repo.LatestVersion(context.Background(), "lodash")

		// then
		require.NoError(t, err)
		assert.Equal(t, "4.17.21", version)
	})

	t.Run("should escape the slash of scoped packages", func(t *testing.T) {
		t.Parallel()

		// given
		var escaped string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			escaped = r.URL.EscapedPath()
			_, _ = w.Write([]byte(`{"version":"20.11.0"}`))
		}))
		defer server.Close()
		repo := npm.NewNPMEcosystemRepository(server.URL, time.Second)

		// when
		version, err := repo.LatestVersion(context.Background(), "@types/node")

		// then
		require.NoError(t, err)
		assert.Equal(t, "20.11.0", version)
		assert.Equal(t, "/@types%2Fnode/latest", escaped)
	})

	t.Run("should fail with RegistryLookupFailed", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			handler http.HandlerFunc
		}{
			{
				name: "on a non-2xx response",
				handler: func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				},
			},
			{
				name: "on malformed JSON",
				handler: func(w http.ResponseWriter, _ *http.Request) {
					_, _ = w.Write([]byte(`{"version":`))
				},
			},
			{
				name: "on an empty version",
				handler: func(w http.ResponseWriter, _ *http.Request) {
					_, _ = w.Write([]byte(`{"name":"ghost"}`))
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// given
				server := httptest.NewServer(tt.handler)
				defer server.Close()
				repo := npm.NewNPMEcosystemRepository(server.URL, time.Second)

				// when
				_, err := repo.LatestVersion(context.Background(), "ghost")

				// then
				require.ErrorIs(t, err, entities.ErrRegistryLookupFailed)
			})
		}
	})

	t.Run("should fail with RegistryLookupFailed when the request times out", func(t *testing.T) {
		t.Parallel()

		// given
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			<-release
			_, _ = w.Write([]byte(`{"version":"1.0.0"}`))
		}))
		defer server.Close()
		defer close(release)
		repo := npm.NewNPMEcosystemRepository(server.URL, 50*time.Millisecond)

		// when
		_, err := repo.LatestVersion(context.Background(), "slow")

		// then
		require.ErrorIs(t, err, entities.ErrRegistryLookupFailed)
	})
}
