package repositories

import (
	"context"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// ParseResult is the outcome of parsing one manifest.
type ParseResult struct {
	// Dependencies maps package name to the declared constraint string.
	Dependencies map[string]string
	// SkippedLines counts content the parser ignored because it did not match
	// the manifest grammar.
	SkippedLines int
}

// EcosystemRepository abstracts a dependency ecosystem: its manifest format and
// the registry that publishes its packages.
type EcosystemRepository interface {
	// Ecosystem returns the ecosystem identifier.
	Ecosystem() entities.Ecosystem

	// ManifestFilename is the exact file name recognised as this ecosystem's manifest.
	ManifestFilename() string

	// ParseManifest extracts package -> constraint pairs. It performs no I/O.
	ParseManifest(content string) (ParseResult, error)

	// RewriteManifest applies package -> latest version replacements. It performs no I/O.
	RewriteManifest(content string, updates map[string]string) (string, error)

	// LatestVersion asks the registry for the latest published version of a package.
	LatestVersion(ctx context.Context, packageName string) (string, error)
}
