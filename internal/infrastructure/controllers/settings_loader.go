package controllers

import (
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// loadSettings reads the configuration named by --config, or the first one found
// in the usual places, falling back to defaults when there is none. --provider and
// --token override the file, and a missing token is taken from the provider's
// conventional environment variables.
func loadSettings(cmd *cobra.Command) (*entities.Settings, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		found, err := entities.FindConfigFile()
		if err != nil {
			logger.Debugf("No config file found, using defaults: %v", err)
		}
		configPath = found
	}

	settings := entities.NewDefaultSettings()
	if configPath != "" {
		logger.Infof("Using config file: %s", configPath)
		loaded, err := entities.NewSettings(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		settings = loaded
	}

	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		settings.Provider.Type = provider
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		settings.Provider.Token = entities.ResolveToken(token)
	}
	if settings.Provider.Token == "" {
		settings.Provider.Token = resolveTokenFromEnv(settings.Provider.Type)
	}

	return settings, nil
}

func resolveTokenFromEnv(providerType string) string {
	switch providerType {
	case "github":
		if t := os.Getenv("GITHUB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GH_TOKEN")
	case "azuredevops":
		if t := os.Getenv("AZURE_DEVOPS_EXT_PAT"); t != "" {
			return t
		}
		return os.Getenv("SYSTEM_ACCESSTOKEN")
	case "gitlab":
		if t := os.Getenv("GITLAB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GL_TOKEN")
	default:
		return ""
	}
}

// repositoryArg returns the repository argument, defaulting to the current
// directory for local audits.
func repositoryArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
