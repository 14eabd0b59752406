package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStack(); err != nil {
		return err
	}
	c.normalizeImages()
	c.normalizeAudio()
	c.normalizeProvision()
	c.normalizeFreshness()
	return c.normalizeLogging()
}

func (c *Config) normalizeStack() error {
	var err error
	if strings.TrimSpace(c.Stack.Directory) == "" {
		c.Stack.Directory = defaultStackDirectory
	}
	if c.Stack.Directory, err = expandPath(c.Stack.Directory); err != nil {
		return fmt.Errorf("stack.directory: %w", err)
	}

	c.Stack.ComposeFiles = cleanList(c.Stack.ComposeFiles)
	if len(c.Stack.ComposeFiles) == 0 {
		c.Stack.ComposeFiles = defaultComposeFiles()
	}

	c.Stack.Services = cleanList(c.Stack.Services)
	if len(c.Stack.Services) == 0 {
		c.Stack.Services = defaultServices()
	}

	// Project name resolution mirrors docker compose: explicit setting,
	// then COMPOSE_PROJECT_NAME, then the checkout directory's name.
	c.Stack.ProjectName = strings.TrimSpace(c.Stack.ProjectName)
	if c.Stack.ProjectName == "" {
		if value, ok := os.LookupEnv(projectNameEnvVar); ok {
			c.Stack.ProjectName = strings.TrimSpace(value)
		}
	}
	if c.Stack.ProjectName == "" {
		c.Stack.ProjectName = filepath.Base(c.Stack.Directory)
	}

	c.Stack.WebService = strings.TrimSpace(c.Stack.WebService)
	if c.Stack.WebService == "" {
		c.Stack.WebService = defaultWebService
	}
	c.Stack.DockerBinary = strings.TrimSpace(c.Stack.DockerBinary)
	if c.Stack.DockerBinary == "" {
		c.Stack.DockerBinary = defaultDockerBinary
	}
	return nil
}

func (c *Config) normalizeImages() {
	c.Images.Registry = strings.TrimSpace(c.Images.Registry)
	if c.Images.Registry == "" {
		c.Images.Registry = defaultRegistry
	}
	c.Images.Organization = strings.TrimSpace(c.Images.Organization)
	if c.Images.Organization == "" {
		c.Images.Organization = defaultOrganization
	}
	c.Images.Product = strings.TrimSpace(c.Images.Product)
	if c.Images.Product == "" {
		c.Images.Product = defaultProduct
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.InputPatterns = cleanList(c.Audio.InputPatterns)
	if len(c.Audio.InputPatterns) == 0 {
		c.Audio.InputPatterns = defaultDevicePatterns()
	}
	c.Audio.OutputPatterns = cleanList(c.Audio.OutputPatterns)
	if len(c.Audio.OutputPatterns) == 0 {
		c.Audio.OutputPatterns = defaultDevicePatterns()
	}
	if c.Audio.FallbackRateHz == 0 {
		c.Audio.FallbackRateHz = defaultFallbackRateHz
	}
	c.Audio.VoiceServices = cleanList(c.Audio.VoiceServices)
	c.Audio.PactlBinary = strings.TrimSpace(c.Audio.PactlBinary)
	if c.Audio.PactlBinary == "" {
		c.Audio.PactlBinary = defaultPactlBinary
	}
}

func (c *Config) normalizeProvision() {
	// An explicit empty script disables the provisioning gate, so no
	// default refill here.
	c.Provision.Script = strings.TrimSpace(c.Provision.Script)
}

func (c *Config) normalizeFreshness() {
	c.Freshness.GitBinary = strings.TrimSpace(c.Freshness.GitBinary)
	if c.Freshness.GitBinary == "" {
		c.Freshness.GitBinary = defaultGitBinary
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}
