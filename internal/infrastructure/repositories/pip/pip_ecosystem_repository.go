package pip

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
	ecosystemName    = entities.EcosystemPip
	manifestFilename = "requirements.txt"
)

// PipEcosystemRepository implements repositories.EcosystemRepository for pip:
// requirements.txt manifests resolved against the PyPI JSON API.
type PipEcosystemRepository struct {
	indexURL string
	client   *http.Client
}

// NewPipEcosystemRepository creates a pip ecosystem bound to a PyPI base URL.
func NewPipEcosystemRepository(indexURL string, timeout time.Duration) repositories.EcosystemRepository {
	return &PipEcosystemRepository{
		indexURL: strings.TrimSuffix(indexURL, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *PipEcosystemRepository) Ecosystem() entities.Ecosystem { return ecosystemName }
func (r *PipEcosystemRepository) ManifestFilename() string      { return manifestFilename }

func (r *PipEcosystemRepository) ParseManifest(content string) (repositories.ParseResult, error) {
	return parseRequirements(content), nil
}

func (r *PipEcosystemRepository) RewriteManifest(content string, updates map[string]string) (string, error) {
	return rewriteRequirements(content, updates), nil
}

type projectResponse struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// LatestVersion queries GET <index>/pypi/<package>/json.
func (r *PipEcosystemRepository) LatestVersion(ctx context.Context, packageName string) (string, error) {
	version, err := r.fetchLatest(ctx, packageName)
	if err != nil {
		return "", entities.NewError(
			entities.KindRegistryLookupFailed,
			fmt.Sprintf("PyPI lookup for %q", packageName),
			err,
		)
	}
	logger.Debugf("[pip] %s latest is %s", packageName, version)
	return version, nil
}

func (r *PipEcosystemRepository) fetchLatest(ctx context.Context, packageName string) (string, error) {
	endpoint := r.indexURL + "/pypi/" + url.PathEscape(packageName) + "/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query PyPI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var project projectResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&project); decodeErr != nil {
		return "", fmt.Errorf("failed to parse PyPI response: %w", decodeErr)
	}
	if project.Info.Version == "" {
		return "", errors.New("PyPI response has no info.version")
	}

	return project.Info.Version, nil
}
