//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// StubRemediateCommand is a stub implementation of commands.Remediate.
type StubRemediateCommand struct {
	ExecuteCallCount int
	Result           *entities.RemediationResult
	ExecuteErr       error
	LastSettings     *entities.Settings
	LastOpts         commands.RemediateOptions
}

var _ commands.Remediate = (*StubRemediateCommand)(nil)

func (s *StubRemediateCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.RemediateOptions,
) (*entities.RemediationResult, error) {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.Result, s.ExecuteErr
}
