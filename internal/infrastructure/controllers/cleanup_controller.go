package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// CleanupController handles the "cleanup" subcommand.
type CleanupController struct {
	command commands.Cleanup
}

// NewCleanupController creates a new CleanupController.
func NewCleanupController(command commands.Cleanup) *CleanupController {
	return &CleanupController{command: command}
}

// GetBind returns the Cobra command metadata for the cleanup controller.
func (it *CleanupController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "cleanup [repository]",
		Short: "Delete a branch left behind by a failed remediation",
		Long: `Delete a dependency-updates-* branch whose pull request could not be
opened. Branches without that prefix are refused.`,
	}
}

// Execute deletes the branch given by --branch.
func (it *CleanupController) Execute(cmd *cobra.Command, args []string) {
	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Error(err)
		return
	}

	branch, _ := cmd.Flags().GetString("branch")
	if err = it.command.Execute(context.Background(), settings, commands.CleanupOptions{
		Repository: repositoryArg(args),
		Branch:     branch,
	}); err != nil {
		logger.Errorf("Cleanup failed: %v", err)
	}
}

// AddFlags adds the cleanup-specific flags to the given Cobra command.
func (it *CleanupController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("branch", "b", "", "Remediation branch to delete")
}
