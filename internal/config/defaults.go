package config

const (
	defaultStackDirectory  = "~/juno"
	defaultWebService      = "web-ui"
	defaultDockerBinary    = "docker"
	defaultRegistry        = "ghcr.io"
	defaultOrganization    = "junolabs"
	defaultProduct         = "juno"
	defaultFallbackRateHz  = 48000
	defaultPactlBinary     = "pactl"
	defaultProvisionScript = "setup-jetson.py"
	defaultGitBinary       = "git"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogDir          = "~/.local/share/juno/logs"

	// projectNameEnvVar mirrors the variable docker compose itself honours.
	projectNameEnvVar = "COMPOSE_PROJECT_NAME"
)

func defaultComposeFiles() []string {
	return []string{"docker-compose.yml", "docker-compose.runtime.yml"}
}

func defaultServices() []string {
	return []string{"stt-stream", "llm", "tts", "mqtt", "monitoring"}
}

func defaultDevicePatterns() []string {
	return []string{"PowerConf", "ANKER", "USB"}
}

func defaultVoiceServices() []string {
	return []string{"stt-stream", "tts"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Stack: Stack{
			Directory:    defaultStackDirectory,
			ComposeFiles: defaultComposeFiles(),
			Services:     defaultServices(),
			WebService:   defaultWebService,
			DockerBinary: defaultDockerBinary,
		},
		Images: Images{
			Registry:     defaultRegistry,
			Organization: defaultOrganization,
			Product:      defaultProduct,
		},
		Audio: Audio{
			InputPatterns:  defaultDevicePatterns(),
			OutputPatterns: defaultDevicePatterns(),
			FallbackRateHz: defaultFallbackRateHz,
			VoiceServices:  defaultVoiceServices(),
			PactlBinary:    defaultPactlBinary,
		},
		Provision: Provision{
			Script: defaultProvisionScript,
		},
		Freshness: Freshness{
			Enabled:   true,
			GitBinary: defaultGitBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
