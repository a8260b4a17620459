//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// StubCleanupCommand is a stub implementation of commands.Cleanup.
type StubCleanupCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	LastSettings     *entities.Settings
	LastOpts         commands.CleanupOptions
}

var _ commands.Cleanup = (*StubCleanupCommand)(nil)

func (s *StubCleanupCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.CleanupOptions,
) error {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.ExecuteErr
}
