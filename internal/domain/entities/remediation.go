package entities

// BranchPrefix starts every branch created by a remediation.
const BranchPrefix = "dependency-updates-"

// VersionUpdate is one requested bump inside a remediation.
type VersionUpdate struct {
	Current string `json:"current" yaml:"current"`
	Latest  string `json:"latest"  yaml:"latest"`
}

// RemediationRequest is the caller-selected subset of an audit for a single manifest.
type RemediationRequest struct {
	FilePath string                   `json:"file_path" yaml:"file_path"`
	Updates  map[string]VersionUpdate `json:"updates"   yaml:"updates"`
}

// LatestVersions flattens the request into package -> latest version.
func (r RemediationRequest) LatestVersions() map[string]string {
	latest := make(map[string]string, len(r.Updates))
	for pkg, update := range r.Updates {
		latest[pkg] = update.Latest
	}
	return latest
}

// RemediationResult describes the branch and pull request a remediation produced.
type RemediationResult struct {
	BranchName        string `json:"branch_name"         yaml:"branch_name"`
	PullRequestURL    string `json:"pull_request_url"    yaml:"pull_request_url"`
	PullRequestNumber int    `json:"pull_request_number" yaml:"pull_request_number"`
}
