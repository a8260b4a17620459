//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// StubAuditCommand is a stub implementation of commands.Audit.
type StubAuditCommand struct {
	ExecuteCallCount int
	Report           *entities.AuditReport
	ExecuteErr       error
	LastSettings     *entities.Settings
	LastOpts         commands.AuditOptions
}

var _ commands.Audit = (*StubAuditCommand)(nil)

func (s *StubAuditCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.AuditOptions,
) (*entities.AuditReport, error) {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.Report, s.ExecuteErr
}
