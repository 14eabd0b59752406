package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Stack describes the compose checkout that holds the runtime definition.
type Stack struct {
	Directory    string   `toml:"directory"`
	ComposeFiles []string `toml:"compose_files"`
	ProjectName  string   `toml:"project_name"`
	Services     []string `toml:"services"`
	WebService   string   `toml:"web_service"`
	DockerBinary string   `toml:"docker_binary"`
}

// Images holds the registry coordinates shared by every Juno service image.
// Release pinning rewrites tags only for images under this namespace.
type Images struct {
	Registry     string `toml:"registry"`
	Organization string `toml:"organization"`
	Product      string `toml:"product"`
}

// Audio contains device discovery and echo-cancellation settings.
type Audio struct {
	InputPatterns  []string `toml:"input_patterns"`
	OutputPatterns []string `toml:"output_patterns"`
	FallbackRateHz int      `toml:"fallback_rate_hz"`
	// VoiceServices lists the services whose presence in a launch requires
	// a negotiated echo-cancellation path.
	VoiceServices     []string `toml:"voice_services"`
	DeviceWaitSeconds int      `toml:"device_wait_seconds"`
	PactlBinary       string   `toml:"pactl_binary"`
}

// Provision configures the device setup script gate. An empty script name
// disables provisioning entirely.
type Provision struct {
	Script string `toml:"script"`
}

// Freshness configures the upstream checkout staleness check.
type Freshness struct {
	Enabled   bool   `toml:"enabled"`
	GitBinary string `toml:"git_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for Juno.
//
// Configuration sections by subsystem:
//   - Stack: compose checkout, layer files, project and service names
//   - Images: registry/organization/product tuple for release pinning
//   - Audio: device patterns, fallback rate, voice service gating
//   - Provision: device setup script
//   - Freshness: git upstream staleness check
//   - Logging: log format, level, and directory
type Config struct {
	Stack     Stack     `toml:"stack"`
	Images    Images    `toml:"images"`
	Audio     Audio     `toml:"audio"`
	Provision Provision `toml:"provision"`
	Freshness Freshness `toml:"freshness"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/juno/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/juno/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("juno.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for launcher operation.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Logging.Dir) != "" {
		if err := os.MkdirAll(c.Logging.Dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.Logging.Dir, err)
		}
	}
	return nil
}

// ComposePaths returns the absolute paths of the configured compose layers,
// resolving relative entries against the stack directory. Order is preserved
// because later layers override earlier ones during the merge.
func (c *Config) ComposePaths() []string {
	paths := make([]string, 0, len(c.Stack.ComposeFiles))
	for _, name := range c.Stack.ComposeFiles {
		if filepath.IsAbs(name) {
			paths = append(paths, filepath.Clean(name))
			continue
		}
		paths = append(paths, filepath.Join(c.Stack.Directory, name))
	}
	return paths
}

// StatePath returns the location of the persisted runtime state document.
func (c *Config) StatePath() string {
	return filepath.Join(c.Stack.Directory, ".juno-state.toml")
}

// LockPath returns the location of the launch lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Stack.Directory, ".juno.lock")
}

// ScriptPath returns the absolute path of the provisioning script, or an
// empty string when provisioning is disabled.
func (c *Config) ScriptPath() string {
	script := strings.TrimSpace(c.Provision.Script)
	if script == "" {
		return ""
	}
	if filepath.IsAbs(script) {
		return filepath.Clean(script)
	}
	return filepath.Join(c.Stack.Directory, script)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
