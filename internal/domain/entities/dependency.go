package entities

import (
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// UnpinnedVersion is recorded for requirements declared without any version,
// so that the comparison step always reports them as outdated.
const UnpinnedVersion = "0.0.0"

// DependencyRecord is a single declared dependency resolved against its registry.
// Package and SourceFile together identify a record within one audit run.
type DependencyRecord struct {
	Ecosystem         Ecosystem `json:"ecosystem"          yaml:"ecosystem"`
	Package           string    `json:"package"            yaml:"package"`
	CurrentConstraint string    `json:"current_constraint" yaml:"current_constraint"`
	CurrentVersion    string    `json:"current"            yaml:"current"`
	LatestVersion     string    `json:"latest"             yaml:"latest"`
	SourceFile        string    `json:"file_path"          yaml:"file_path"`
	Outdated          bool      `json:"outdated"           yaml:"outdated"`
}

// NewDependencyRecord builds a record from a declared constraint and the latest
// published version, deriving the comparable current version and the outdated flag.
func NewDependencyRecord(
	ecosystem Ecosystem,
	pkg, constraint, latest, sourceFile string,
) DependencyRecord {
	current := StripConstraint(constraint)
	return DependencyRecord{
		Ecosystem:         ecosystem,
		Package:           pkg,
		CurrentConstraint: constraint,
		CurrentVersion:    current,
		LatestVersion:     latest,
		SourceFile:        sourceFile,
		Outdated:          IsOutdated(current, latest),
	}
}

// StripConstraint removes leading non-numeric characters such as "^", "~" or ">=".
func StripConstraint(constraint string) string {
	return strings.TrimLeftFunc(strings.TrimSpace(constraint), func(r rune) bool {
		return !unicode.IsDigit(r)
	})
}

// IsOutdated reports whether current lags behind latest. Versions that are not
// valid semver fall back to plain string inequality.
func IsOutdated(current, latest string) bool {
	if latest == "" {
		return false
	}
	v1 := normalizeVersion(current)
	v2 := normalizeVersion(latest)
	if semver.IsValid(v1) && semver.IsValid(v2) {
		return semver.Compare(v1, v2) < 0
	}
	return current != latest
}

func normalizeVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
