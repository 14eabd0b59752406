package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStack(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStack() error {
	if strings.TrimSpace(c.Stack.Directory) == "" {
		return errors.New("stack.directory must be set")
	}
	if len(c.Stack.ComposeFiles) == 0 {
		return errors.New("stack.compose_files must include at least one layer")
	}
	if len(c.Stack.Services) == 0 {
		return errors.New("stack.services must include at least one service")
	}
	if c.Stack.WebService == "" {
		return errors.New("stack.web_service must be set")
	}
	if c.Stack.ProjectName == "" {
		return errors.New("stack.project_name must be set")
	}
	if c.Stack.DockerBinary == "" {
		return errors.New("stack.docker_binary must be set")
	}
	return nil
}

func (c *Config) validateImages() error {
	if c.Images.Registry == "" {
		return errors.New("images.registry must be set")
	}
	if c.Images.Organization == "" {
		return errors.New("images.organization must be set")
	}
	if c.Images.Product == "" {
		return errors.New("images.product must be set")
	}
	for key, value := range map[string]string{
		"images.registry":     c.Images.Registry,
		"images.organization": c.Images.Organization,
		"images.product":      c.Images.Product,
	} {
		if strings.ContainsAny(value, "/:") {
			return fmt.Errorf("%s must not contain '/' or ':'", key)
		}
	}
	return nil
}

func (c *Config) validateAudio() error {
	if len(c.Audio.InputPatterns) == 0 {
		return errors.New("audio.input_patterns must include at least one pattern")
	}
	if len(c.Audio.OutputPatterns) == 0 {
		return errors.New("audio.output_patterns must include at least one pattern")
	}
	if c.Audio.FallbackRateHz <= 0 {
		return errors.New("audio.fallback_rate_hz must be positive")
	}
	if c.Audio.DeviceWaitSeconds < 0 {
		return errors.New("audio.device_wait_seconds must be >= 0")
	}
	if c.Audio.PactlBinary == "" {
		return errors.New("audio.pactl_binary must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}
