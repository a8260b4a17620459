package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

var errNothingToUpdate = errors.New("no updates selected, use --update or --all-outdated")

// RemediateController handles the "remediate" subcommand.
type RemediateController struct {
	command commands.Remediate
	audit   commands.Audit
}

// NewRemediateController creates a new RemediateController.
func NewRemediateController(command commands.Remediate, audit commands.Audit) *RemediateController {
	return &RemediateController{command: command, audit: audit}
}

// GetBind returns the Cobra command metadata for the remediate controller.
func (it *RemediateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "remediate [repository]",
		Short: "Open a pull request that bumps dependencies of one manifest",
		Long: `Rewrite one manifest with the requested versions on a new
dependency-updates-* branch and open a pull request against the default branch.

Select packages with --update name=current:latest (repeatable), or pass
--all-outdated to audit the repository first and bump every outdated package
declared in --file.`,
	}
}

// Execute runs the remediation and prints the result.
func (it *RemediateController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Error(err)
		return
	}

	file, _ := cmd.Flags().GetString("file")
	rawUpdates, _ := cmd.Flags().GetStringArray("update")
	allOutdated, _ := cmd.Flags().GetBool("all-outdated")
	repository := repositoryArg(args)

	request, err := it.buildRequest(ctx, settings, repository, file, rawUpdates, allOutdated)
	if err != nil {
		logger.Errorf("Remediation failed: %v", err)
		return
	}

	result, err := it.command.Execute(ctx, settings, commands.RemediateOptions{
		Repository: repository,
		Request:    request,
	})
	if err != nil {
		logger.Errorf("Remediation failed: %v", err)
		return
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(result); err != nil {
		logger.Errorf("Failed to write result: %v", err)
	}
}

// AddFlags adds the remediate-specific flags to the given Cobra command.
func (it *RemediateController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Manifest path inside the repository (e.g. package.json)")
	cmd.Flags().StringArrayP("update", "u", nil, "Package bump as name=current:latest (repeatable)")
	cmd.Flags().Bool("all-outdated", false, "Audit first and bump every outdated package of --file")
}

func (it *RemediateController) buildRequest(
	ctx context.Context,
	settings *entities.Settings,
	repository, file string,
	rawUpdates []string,
	allOutdated bool,
) (entities.RemediationRequest, error) {
	if file == "" {
		return entities.RemediationRequest{}, errors.New("--file is required")
	}

	request := entities.RemediationRequest{FilePath: file, Updates: make(map[string]entities.VersionUpdate)}
	if allOutdated {
		report, err := it.audit.Execute(ctx, settings, commands.AuditOptions{Repository: repository})
		if err != nil {
			return entities.RemediationRequest{}, fmt.Errorf("failed to audit before remediation: %w", err)
		}
		request = report.OutdatedIn(file)
	}

	for _, raw := range rawUpdates {
		name, update, err := parseUpdate(raw)
		if err != nil {
			return entities.RemediationRequest{}, err
		}
		request.Updates[name] = update
	}

	if len(request.Updates) == 0 {
		return entities.RemediationRequest{}, errNothingToUpdate
	}
	return request, nil
}

// parseUpdate reads "name=current:latest" or "name=latest".
func parseUpdate(raw string) (string, entities.VersionUpdate, error) {
	name, versions, found := strings.Cut(raw, "=")
	if !found || name == "" || versions == "" {
		return "", entities.VersionUpdate{}, fmt.Errorf("invalid update %q, expected name=current:latest", raw)
	}

	current, latest, found := strings.Cut(versions, ":")
	if !found {
		return name, entities.VersionUpdate{Latest: current}, nil
	}
	if latest == "" {
		return "", entities.VersionUpdate{}, fmt.Errorf("invalid update %q, latest version is empty", raw)
	}
	return name, entities.VersionUpdate{Current: current, Latest: latest}, nil
}
