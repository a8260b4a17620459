package commands

import (
	"context"
	"errors"
	"sync"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/depaudit/internal/infrastructure/repositories"
)

// Audit is the interface for the audit command.
type Audit interface {
	Execute(ctx context.Context, settings *entities.Settings, opts AuditOptions) (*entities.AuditReport, error)
}

// AuditOptions holds runtime options for a single audit.
type AuditOptions struct {
	Provider   string // If set, overrides the configured provider type
	Token      string // If set, overrides the configured token
	Repository string // "owner/name", bare "name", or a local path
	Branch     string // If empty, the repository default branch is used
}

// AuditCommand orchestrates one audit:
// resolve repository -> walk tree -> fetch and parse manifests -> look packages up.
type AuditCommand struct {
	providerRegistry *infraRepos.ProviderRegistry
	ecosystems       infraRepos.EcosystemRegistryBuilder
	metrics          repositories.MetricsRepository
}

// NewAuditCommand creates a new AuditCommand.
func NewAuditCommand(
	providerRegistry *infraRepos.ProviderRegistry,
	ecosystems infraRepos.EcosystemRegistryBuilder,
	metrics repositories.MetricsRepository,
) *AuditCommand {
	return &AuditCommand{
		providerRegistry: providerRegistry,
		ecosystems:       ecosystems,
		metrics:          metrics,
	}
}

// parsedManifest is a fetched manifest and the constraints declared in it.
type parsedManifest struct {
	manifest     entities.ManifestFile
	dependencies map[string]string
}

// Execute audits one repository. Failures of single manifests or lookups are
// logged and counted in the report stats; they never fail the audit.
func (it *AuditCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts AuditOptions,
) (*entities.AuditReport, error) {
	var stats entities.AuditStats
	report, err := it.audit(ctx, settings, opts, &stats)
	it.metrics.ObserveAudit(stats, err)
	return report, err
}

func (it *AuditCommand) audit(
	ctx context.Context,
	settings *entities.Settings,
	opts AuditOptions,
	stats *entities.AuditStats,
) (*entities.AuditReport, error) {
	provider, err := openProvider(it.providerRegistry, settings, opts.Provider, opts.Token)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, settings.Audit.AuditTimeout)
	defer cancel()

	repo, err := resolveRepository(ctx, provider, opts.Repository)
	if err != nil {
		return nil, asUnavailable("repository unreachable", err)
	}

	branch := opts.Branch
	if branch == "" {
		branch = repo.DefaultBranch
	}

	ecosystems := it.ecosystems(settings)
	listing, err := listManifests(ctx, provider, ecosystems, repo, branch, settings.Audit.FallbackBranch)
	if err != nil {
		return nil, err
	}
	if len(listing.Manifests) == 0 {
		logger.Infof("[audit] No dependency files found in %s on %q", entities.FullName(repo), listing.Branch)
		return nil, entities.ErrNoDependencyFiles
	}

	stats.ManifestsFound = len(listing.Manifests)
	logger.Infof("[audit] Found %d manifests in %s on %q",
		len(listing.Manifests), entities.FullName(repo), listing.Branch)

	parsed := it.parseManifests(ctx, settings, provider, ecosystems, repo, listing, stats)
	records := it.lookupPackages(ctx, settings, ecosystems, parsed, stats)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warnf("[audit] Audit of %s hit its deadline, report is partial", entities.FullName(repo))
	}

	logger.Infof(
		"[audit] Audit complete: %d packages scanned, %d lookups failed, %d manifests failed",
		stats.PackagesScanned, stats.LookupsFailed, stats.ManifestsFailed,
	)
	return entities.NewAuditReport(records, *stats), nil
}

// parseManifests fetches and parses every manifest concurrently.
func (it *AuditCommand) parseManifests(
	ctx context.Context,
	settings *entities.Settings,
	provider repositories.ProviderRepository,
	ecosystems *infraRepos.EcosystemRegistry,
	repo entities.Repository,
	listing manifestListing,
	stats *entities.AuditStats,
) []parsedManifest {
	var (
		mu     sync.Mutex
		parsed []parsedManifest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(settings.Audit.Concurrency)
	for _, manifest := range listing.Manifests {
		g.Go(func() error {
			content, err := provider.GetFile(gctx, repo, listing.Branch, manifest.Path)
			if err != nil {
				logger.Warnf("[audit] Failed to fetch %q: %v", manifest.Path, err)
				mu.Lock()
				stats.ManifestsFailed++
				mu.Unlock()
				return nil
			}

			result, err := ecosystems.Get(manifest.Ecosystem).ParseManifest(content.Content)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warnf("[audit] Failed to parse %q: %v", manifest.Path, err)
				stats.ManifestsFailed++
				return nil
			}

			stats.LinesSkipped += result.SkippedLines
			manifest.Content = content.Content
			manifest.SHA = content.SHA
			parsed = append(parsed, parsedManifest{manifest: manifest, dependencies: result.Dependencies})
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	return parsed
}

// lookupPackages asks the registries for the latest version of every declared
// package. A failed lookup leaves the package out of the result.
func (it *AuditCommand) lookupPackages(
	ctx context.Context,
	settings *entities.Settings,
	ecosystems *infraRepos.EcosystemRegistry,
	parsed []parsedManifest,
	stats *entities.AuditStats,
) []entities.DependencyRecord {
	var (
		mu      sync.Mutex
		records []entities.DependencyRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(settings.Audit.Concurrency)
	for _, item := range parsed {
		for pkg, constraint := range item.dependencies {
			ecosystem := item.manifest.Ecosystem
			sourceFile := item.manifest.Path
			g.Go(func() error {
				lookupCtx, cancel := context.WithTimeout(gctx, settings.Audit.RequestTimeout)
				defer cancel()

				latest, err := ecosystems.LatestVersion(lookupCtx, ecosystem, pkg)
				it.metrics.ObserveLookup(ecosystem, err == nil)

				mu.Lock()
				defer mu.Unlock()
				stats.PackagesScanned++
				if err != nil {
					logger.Warnf("[audit] Skipping %s package %q from %q: %v", ecosystem, pkg, sourceFile, err)
					stats.LookupsFailed++
					return nil
				}
				records = append(records, entities.NewDependencyRecord(ecosystem, pkg, constraint, latest, sourceFile))
				return nil
			})
		}
	}
	_ = g.Wait() // goroutines never return errors

	return records
}
