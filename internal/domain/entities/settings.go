package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProviderType   = "github"
	DefaultNPMRegistryURL = "https://registry.npmjs.org"
	DefaultPyPIURL        = "https://pypi.org"
	DefaultConcurrency    = 8
	DefaultRequestTimeout = 10 * time.Second
	DefaultAuditTimeout   = 2 * time.Minute
	DefaultFallbackBranch = "master"
	DefaultListenAddress  = ":8080"
)

// Settings is the process-wide configuration. It is loaded once by the
// controllers and handed to every command; commands never read the environment.
type Settings struct {
	Provider   ProviderSettings `yaml:"provider"`
	Registries RegistrySettings `yaml:"registries"`
	Audit      AuditSettings    `yaml:"audit"`
	Server     ServerSettings   `yaml:"server"`
}

// ProviderSettings selects the code-hosting provider.
type ProviderSettings struct {
	Type    string `yaml:"type"`     // "github", "gitlab", "azuredevops", "local"
	Token   string `yaml:"token"`    // Inline, ${ENV_VAR}, or file path
	BaseURL string `yaml:"base_url"` // Enterprise or self-hosted API base
}

// RegistrySettings holds the base URLs of the package registries.
type RegistrySettings struct {
	NPMURL  string `yaml:"npm_url"`
	PyPIURL string `yaml:"pypi_url"`
}

// AuditSettings bounds the audit fan-out and its deadlines.
type AuditSettings struct {
	Concurrency    int           `yaml:"concurrency"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AuditTimeout   time.Duration `yaml:"audit_timeout"`
	FallbackBranch string        `yaml:"fallback_branch"`
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Listen string `yaml:"listen"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewDefaultSettings returns settings with every default applied.
func NewDefaultSettings() *Settings {
	settings := &Settings{}
	settings.applyDefaults()
	return settings
}

// NewSettings reads and parses a configuration file, expanding environment
// variables and resolving token file paths.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var settings Settings
	if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	settings.Provider.Token = ResolveToken(settings.Provider.Token)
	settings.applyDefaults()

	if validateErr := settings.validate(); validateErr != nil {
		return nil, validateErr
	}

	return &settings, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".depaudit.yaml",
		".depaudit.yml",
		"depaudit.yaml",
		"depaudit.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// ResolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func ResolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

func (s *Settings) applyDefaults() {
	if s.Provider.Type == "" {
		s.Provider.Type = DefaultProviderType
	}
	if s.Registries.NPMURL == "" {
		s.Registries.NPMURL = DefaultNPMRegistryURL
	}
	if s.Registries.PyPIURL == "" {
		s.Registries.PyPIURL = DefaultPyPIURL
	}
	if s.Audit.Concurrency <= 0 {
		s.Audit.Concurrency = DefaultConcurrency
	}
	if s.Audit.RequestTimeout <= 0 {
		s.Audit.RequestTimeout = DefaultRequestTimeout
	}
	if s.Audit.AuditTimeout <= 0 {
		s.Audit.AuditTimeout = DefaultAuditTimeout
	}
	if s.Audit.FallbackBranch == "" {
		s.Audit.FallbackBranch = DefaultFallbackBranch
	}
	if s.Server.Listen == "" {
		s.Server.Listen = DefaultListenAddress
	}
}

func (s *Settings) validate() error {
	switch s.Provider.Type {
	case "github", "gitlab", "azuredevops", "local":
	default:
		return fmt.Errorf("provider.type %q is not supported (github, gitlab, azuredevops, local)", s.Provider.Type)
	}
	if s.Audit.RequestTimeout > s.Audit.AuditTimeout {
		return fmt.Errorf(
			"audit.request_timeout (%s) must not exceed audit.audit_timeout (%s)",
			s.Audit.RequestTimeout, s.Audit.AuditTimeout,
		)
	}
	return nil
}
