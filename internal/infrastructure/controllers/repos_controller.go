package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// ReposController handles the "repos" subcommand.
type ReposController struct {
	command commands.Discover
}

// NewReposController creates a new ReposController.
func NewReposController(command commands.Discover) *ReposController {
	return &ReposController{command: command}
}

// GetBind returns the Cobra command metadata for the repos controller.
func (it *ReposController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "repos [owner]",
		Short: "List the repositories available for auditing",
		Long: `List the repositories of an organization, group, project or user.
Without an owner, list the repositories the token's user can access.
With --provider local the owner is a directory holding clones.`,
	}
}

// Execute lists the repositories and prints them.
func (it *ReposController) Execute(cmd *cobra.Command, args []string) {
	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Error(err)
		return
	}

	var owner string
	if len(args) > 0 {
		owner = args[0]
	}
	output, _ := cmd.Flags().GetString("output")

	repos, err := it.command.Execute(context.Background(), settings, commands.DiscoverOptions{Owner: owner})
	if err != nil {
		logger.Errorf("Listing repositories failed: %v", err)
		return
	}

	if err = writeReport(cmd.OutOrStdout(), output, entities.NewRepositorySummaries(repos)); err != nil {
		logger.Errorf("Failed to write repositories: %v", err)
	}
}

// AddFlags adds the repos-specific flags to the given Cobra command.
func (it *ReposController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "json", "Output format (json, yaml)")
}
