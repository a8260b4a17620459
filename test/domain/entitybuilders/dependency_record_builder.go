//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/depaudit/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// DependencyRecordBuilder helps create audit records with a fluent interface.
type DependencyRecordBuilder struct {
	*testkit.BaseBuilder
	ecosystem  entities.Ecosystem
	pkg        string
	constraint string
	latest     string
	sourceFile string
}

// NewDependencyRecordBuilder creates a new record builder with sensible defaults.
func NewDependencyRecordBuilder() *DependencyRecordBuilder {
	b := &DependencyRecordBuilder{BaseBuilder: testkit.NewBaseBuilder()}
	b.defaults()
	return b
}

func (b *DependencyRecordBuilder) defaults() {
	b.ecosystem = entities.EcosystemNPM
	b.pkg = "lodash"
	b.constraint = "^4.17.0"
	b.latest = "4.17.21"
	b.sourceFile = "package.json"
}

// WithEcosystem sets the ecosystem.
func (b *DependencyRecordBuilder) WithEcosystem(ecosystem entities.Ecosystem) *DependencyRecordBuilder {
	b.ecosystem = ecosystem
	return b
}

// WithPackage sets the package name.
func (b *DependencyRecordBuilder) WithPackage(pkg string) *DependencyRecordBuilder {
	b.pkg = pkg
	return b
}

// WithConstraint sets the declared constraint.
func (b *DependencyRecordBuilder) WithConstraint(constraint string) *DependencyRecordBuilder {
	b.constraint = constraint
	return b
}

// WithLatest sets the latest published version.
func (b *DependencyRecordBuilder) WithLatest(latest string) *DependencyRecordBuilder {
	b.latest = latest
	return b
}

// WithSourceFile sets the manifest path.
func (b *DependencyRecordBuilder) WithSourceFile(path string) *DependencyRecordBuilder {
	b.sourceFile = path
	return b
}

// Build creates the record (satisfies testkit.Builder interface).
func (b *DependencyRecordBuilder) Build() interface{} {
	return b.BuildRecord()
}

// BuildRecord creates the record with a concrete return type.
func (b *DependencyRecordBuilder) BuildRecord() entities.DependencyRecord {
	return entities.NewDependencyRecord(b.ecosystem, b.pkg, b.constraint, b.latest, b.sourceFile)
}

// Reset clears the builder state, allowing it to be reused.
func (b *DependencyRecordBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.defaults()
	return b
}

// Clone creates a deep copy of the DependencyRecordBuilder.
func (b *DependencyRecordBuilder) Clone() testkit.Builder {
	return &DependencyRecordBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		ecosystem:   b.ecosystem,
		pkg:         b.pkg,
		constraint:  b.constraint,
		latest:      b.latest,
		sourceFile:  b.sourceFile,
	}
}
