package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/depaudit/internal"
	"github.com/rios0rios0/depaudit/internal/infrastructure/controllers"
)

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "depaudit",
		Short: "Audit and bump npm and pip dependencies of hosted repositories",
		Long: `Scan a GitHub, GitLab, Azure DevOps or local repository for package.json and
requirements.txt manifests, report every dependency against the latest version
published on npm or PyPI, and open pull requests that bump the outdated ones.

Usage modes:
  depaudit audit owner/repo                 Print the dependency report
  depaudit remediate owner/repo -f FILE ... Open a pull request with the bumps
  depaudit cleanup owner/repo -b BRANCH     Delete a leftover remediation branch
  depaudit repos [owner]                    List the repositories available to audit
  depaudit serve                            Expose the same operations over HTTP`,
		SilenceUsage: true,
	}

	// Global persistent flags
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to config file (default: auto-detect)")
	cmd.PersistentFlags().String("provider", "",
		"Repository provider (github, gitlab, azuredevops, local)")
	cmd.PersistentFlags().String("token", "",
		"Auth token for the provider (overrides config and env var detection)")
	cmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable verbose output")

	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller // capture for closure
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Args:  cobra.MaximumNArgs(1),
			Run: func(command *cobra.Command, arguments []string) {
				ctrl.Execute(command, arguments)
			},
		}

		// Add controller-specific flags
		if fc, ok := ctrl.(controllers.FlagContributor); ok {
			fc.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	cobraRoot := buildRootCommand()

	// Inject controllers via DIG and add all subcommands
	appContext := injectAppContext()
	addSubcommands(cobraRoot, appContext)

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'depaudit': %s", err)
	}
}
