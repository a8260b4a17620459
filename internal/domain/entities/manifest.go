package entities

// ManifestFile is a manifest discovered in a repository tree.
// SHA is the provider's optimistic-concurrency token for the content. It is only
// valid for the moment it was read and must be fetched again before any write.
type ManifestFile struct {
	Ecosystem Ecosystem
	Path      string
	Content   string
	SHA       string
}
