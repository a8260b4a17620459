package entities

import (
	gitforgeEntities "github.com/rios0rios0/gitforge/pkg/global/domain/entities"
)

// CommitInput is a single-file write conditioned on the content token read earlier.
type CommitInput struct {
	BranchName    string
	Path          string
	Content       string
	ExpectedSHA   string
	CommitMessage string
}

// PullRequestInput is re-exported from gitforge.
type PullRequestInput = gitforgeEntities.PullRequestInput

// PullRequest is re-exported from gitforge.
type PullRequest = gitforgeEntities.PullRequest
