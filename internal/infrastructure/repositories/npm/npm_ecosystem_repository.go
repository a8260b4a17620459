package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

const (
	ecosystemName    = entities.EcosystemNPM
	manifestFilename = "package.json"
)

// NPMEcosystemRepository implements repositories.EcosystemRepository for npm:
// package.json manifests resolved against the npm registry "latest" dist-tag.
type NPMEcosystemRepository struct {
	registryURL string
	client      *http.Client
}

// NewNPMEcosystemRepository creates an npm ecosystem bound to a registry base URL.
func NewNPMEcosystemRepository(registryURL string, timeout time.Duration) repositories.EcosystemRepository {
	return &NPMEcosystemRepository{
		registryURL: strings.TrimSuffix(registryURL, "/"),
		client:      &http.Client{Timeout: timeout},
	}
}

func (r *NPMEcosystemRepository) Ecosystem() entities.Ecosystem { return ecosystemName }
func (r *NPMEcosystemRepository) ManifestFilename() string      { return manifestFilename }

func (r *NPMEcosystemRepository) ParseManifest(content string) (repositories.ParseResult, error) {
	return parseManifest(content)
}

func (r *NPMEcosystemRepository) RewriteManifest(content string, updates map[string]string) (string, error) {
	return rewriteManifest(content, updates)
}

type latestResponse struct {
	Version string `json:"version"`
}

// LatestVersion queries GET <registry>/<package>/latest.
func (r *NPMEcosystemRepository) LatestVersion(ctx context.Context, packageName string) (string, error) {
	version, err := r.fetchLatest(ctx, packageName)
	if err != nil {
		return "", entities.NewError(
			entities.KindRegistryLookupFailed,
			fmt.Sprintf("npm lookup for %q", packageName),
			err,
		)
	}
	logger.Debugf("[npm] %s latest is %s", packageName, version)
	return version, nil
}

func (r *NPMEcosystemRepository) fetchLatest(ctx context.Context, packageName string) (string, error) {
	endpoint := r.registryURL + "/" + url.PathEscape(packageName) + "/latest"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query npm registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var latest latestResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&latest); decodeErr != nil {
		return "", fmt.Errorf("failed to parse registry response: %w", decodeErr)
	}
	if latest.Version == "" {
		return "", errors.New("registry response has no version")
	}

	return latest.Version, nil
}
