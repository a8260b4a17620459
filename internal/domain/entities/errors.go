package entities

import (
	"errors"
	"fmt"
)

// ErrorKind tags every failure that reaches a caller.
type ErrorKind string

const (
	KindAuthorizationMissing   ErrorKind = "AuthorizationMissing"
	KindRepositoryUnavailable  ErrorKind = "RepositoryUnavailable"
	KindManifestParseError     ErrorKind = "ManifestParseError"
	KindRegistryLookupFailed   ErrorKind = "RegistryLookupFailed"
	KindConcurrentModification ErrorKind = "ConcurrentModification"
	KindRemediationStepFailed  ErrorKind = "RemediationStepFailed"
	KindNoDependencyFiles      ErrorKind = "NoDependencyFiles"
	KindInvalidRequest         ErrorKind = "InvalidRequest"
)

// Remediation steps, in execution order.
const (
	StepResolve     = "resolve"
	StepFetch       = "fetch"
	StepBranch      = "branch"
	StepRewrite     = "rewrite"
	StepCommit      = "commit"
	StepPullRequest = "pull_request"
)

// Sentinels usable with errors.Is against any *PipelineError of the same kind.
//
//nolint:gochecknoglobals // sentinel errors
var (
	ErrAuthorizationMissing   = &PipelineError{Kind: KindAuthorizationMissing}
	ErrRepositoryUnavailable  = &PipelineError{Kind: KindRepositoryUnavailable}
	ErrManifestParse          = &PipelineError{Kind: KindManifestParseError}
	ErrRegistryLookupFailed   = &PipelineError{Kind: KindRegistryLookupFailed}
	ErrConcurrentModification = &PipelineError{Kind: KindConcurrentModification}
	ErrRemediationStepFailed  = &PipelineError{Kind: KindRemediationStepFailed}
	ErrNoDependencyFiles      = &PipelineError{Kind: KindNoDependencyFiles, Detail: "no dependency files found"}
	ErrInvalidRequest         = &PipelineError{Kind: KindInvalidRequest}
)

// PipelineError is a failure tagged with its kind and, during remediation, the
// step that produced it.
type PipelineError struct {
	Kind   ErrorKind
	Step   string
	Detail string
	Err    error
}

// NewError builds a tagged error wrapping cause.
func NewError(kind ErrorKind, detail string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Detail: detail, Err: cause}
}

// NewStepError builds an error tagged with the remediation step that failed.
func NewStepError(kind ErrorKind, step, detail string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Step: step, Detail: detail, Err: cause}
}

func (e *PipelineError) Error() string {
	msg := string(e.Kind)
	if e.Step != "" {
		msg += fmt.Sprintf("(%s)", e.Step)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Is matches any PipelineError of the same kind, so sentinels work with errors.Is.
func (e *PipelineError) Is(target error) bool {
	var other *PipelineError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// KindOf extracts the kind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind
	}
	return ""
}
