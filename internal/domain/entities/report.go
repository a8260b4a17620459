package entities

import "sort"

// AuditStats counts what an audit skipped or could not resolve. The counters are
// informational only: partial failures never fail the audit.
type AuditStats struct {
	ManifestsFound  int `json:"manifests_found"  yaml:"manifests_found"`
	ManifestsFailed int `json:"manifests_failed" yaml:"manifests_failed"`
	PackagesScanned int `json:"packages_scanned" yaml:"packages_scanned"`
	LookupsFailed   int `json:"lookups_failed"   yaml:"lookups_failed"`
	LinesSkipped    int `json:"lines_skipped"    yaml:"lines_skipped"`
}

// AuditReport is the outcome of one audit, partitioned by ecosystem.
//
// NPM and Pip hold one record per package; when a package is declared in several
// manifests the record of the lexicographically first file is kept there, while
// Records lists every package/file pair. A package whose registry lookup failed is
// absent from all three.
type AuditReport struct {
	NPM     map[string]DependencyRecord `json:"npm"     yaml:"npm"`
	Pip     map[string]DependencyRecord `json:"pip"     yaml:"pip"`
	Records []DependencyRecord          `json:"records" yaml:"records"`
	Stats   AuditStats                  `json:"stats"   yaml:"stats"`
}

// NewAuditReport assembles a report from unordered records.
func NewAuditReport(records []DependencyRecord, stats AuditStats) *AuditReport {
	sorted := make([]DependencyRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Ecosystem != sorted[j].Ecosystem {
			return sorted[i].Ecosystem < sorted[j].Ecosystem
		}
		if sorted[i].SourceFile != sorted[j].SourceFile {
			return sorted[i].SourceFile < sorted[j].SourceFile
		}
		return sorted[i].Package < sorted[j].Package
	})

	report := &AuditReport{
		NPM:     make(map[string]DependencyRecord),
		Pip:     make(map[string]DependencyRecord),
		Records: sorted,
		Stats:   stats,
	}
	for _, record := range sorted {
		target := report.ByEcosystem(record.Ecosystem)
		if target == nil {
			continue
		}
		if _, exists := target[record.Package]; !exists {
			target[record.Package] = record
		}
	}
	return report
}

// ByEcosystem returns the per-package mapping for the given ecosystem, or nil if
// the ecosystem is not part of the report.
func (r *AuditReport) ByEcosystem(ecosystem Ecosystem) map[string]DependencyRecord {
	switch ecosystem {
	case EcosystemNPM:
		return r.NPM
	case EcosystemPip:
		return r.Pip
	default:
		return nil
	}
}

// OutdatedIn builds a remediation request covering every outdated record
// declared in the given file.
func (r *AuditReport) OutdatedIn(filePath string) RemediationRequest {
	request := RemediationRequest{
		FilePath: filePath,
		Updates:  make(map[string]VersionUpdate),
	}
	for _, record := range r.Records {
		if record.SourceFile != filePath || !record.Outdated {
			continue
		}
		request.Updates[record.Package] = VersionUpdate{
			Current: record.CurrentVersion,
			Latest:  record.LatestVersion,
		}
	}
	return request
}
