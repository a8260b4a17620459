package controllers

import (
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register controller constructors
	if err := container.Provide(NewAuditController); err != nil {
		return err
	}
	if err := container.Provide(NewRemediateController); err != nil {
		return err
	}
	if err := container.Provide(NewCleanupController); err != nil {
		return err
	}
	if err := container.Provide(NewReposController); err != nil {
		return err
	}
	if err := container.Provide(NewServeController); err != nil {
		return err
	}
	if err := container.Provide(NewControllers); err != nil {
		return err
	}

	return nil
}

// NewControllers aggregates all controllers into a slice for the AppInternal.
func NewControllers(
	auditController *AuditController,
	remediateController *RemediateController,
	cleanupController *CleanupController,
	reposController *ReposController,
	serveController *ServeController,
) *[]entities.Controller {
	return &[]entities.Controller{
		auditController,
		remediateController,
		cleanupController,
		reposController,
		serveController,
	}
}

// FlagContributor is implemented by controllers that add their own flags.
type FlagContributor interface {
	AddFlags(cmd *cobra.Command)
}
