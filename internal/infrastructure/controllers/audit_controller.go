package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// AuditController handles the "audit" subcommand.
type AuditController struct {
	command commands.Audit
}

// NewAuditController creates a new AuditController.
func NewAuditController(command commands.Audit) *AuditController {
	return &AuditController{command: command}
}

// GetBind returns the Cobra command metadata for the audit controller.
func (it *AuditController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "audit [repository]",
		Short: "Report outdated npm and pip dependencies of a repository",
		Long: `Walk the tree of a repository, parse every package.json and
requirements.txt found, and compare each declared version with the
latest version published on npm or PyPI.

The repository is "owner/name", a bare "name" owned by the token's user,
or a path when --provider local is used (default ".").`,
	}
}

// Execute runs the audit and prints the report.
func (it *AuditController) Execute(cmd *cobra.Command, args []string) {
	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Error(err)
		return
	}

	branch, _ := cmd.Flags().GetString("branch")
	output, _ := cmd.Flags().GetString("output")

	report, err := it.command.Execute(context.Background(), settings, commands.AuditOptions{
		Repository: repositoryArg(args),
		Branch:     branch,
	})
	if err != nil {
		logger.Errorf("Audit failed: %v", err)
		return
	}

	if err = writeReport(cmd.OutOrStdout(), output, report); err != nil {
		logger.Errorf("Failed to write report: %v", err)
	}
}

// AddFlags adds the audit-specific flags to the given Cobra command.
func (it *AuditController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("branch", "b", "", "Branch to audit (default: the repository default branch)")
	cmd.Flags().StringP("output", "o", "json", "Report format (json, yaml)")
}

// writeReport encodes payload as indented JSON (the default) or YAML.
func writeReport(w io.Writer, format string, payload any) error {
	switch format {
	case "json", "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(payload)
	default:
		return fmt.Errorf("unsupported output format %q (json, yaml)", format)
	}
}
