package commands

import "time"

// PullRequestBody exports pullRequestBody for testing.
var PullRequestBody = pullRequestBody //nolint:gochecknoglobals // test export

// PullRequestTitle exports pullRequestTitle for testing.
var PullRequestTitle = pullRequestTitle //nolint:gochecknoglobals // test export

// RandomSuffix exports randomSuffix for testing.
var RandomSuffix = randomSuffix //nolint:gochecknoglobals // test export

// WithClock replaces the clock and suffix source used for branch names.
func (it *RemediateCommand) WithClock(now func() time.Time, suffix func() string) *RemediateCommand {
	it.now = now
	if suffix != nil {
		it.suffix = suffix
	}
	return it
}

// BranchName exports branchName for testing.
func (it *RemediateCommand) BranchName() string {
	return it.branchName()
}
