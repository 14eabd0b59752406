package preflight

import (
	"path/filepath"

	"juno/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks inform the operator but never abort a launch.
	Optional bool
}

// Run executes all applicable preflight checks for the given config.
func Run(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Stack directory", cfg.Stack.Directory))

	for _, layer := range cfg.ComposePaths() {
		results = append(results, CheckFileReadable("Compose file "+filepath.Base(layer), layer))
	}

	requirements := []Requirement{
		{
			Name:        "Docker",
			Command:     cfg.Stack.DockerBinary,
			Description: "Required to run the service stack",
		},
		{
			Name:        "pactl",
			Command:     cfg.Audio.PactlBinary,
			Description: "Required for echo-cancellation setup",
			Optional:    len(cfg.Audio.VoiceServices) == 0,
		},
	}
	if cfg.Freshness.Enabled {
		requirements = append(requirements, Requirement{
			Name:        "git",
			Command:     cfg.Freshness.GitBinary,
			Description: "Used to warn when the stack checkout is stale",
			Optional:    true,
		})
	}
	results = append(results, CheckBinaries(requirements)...)

	return results
}

// RequiredFailures filters results down to the ones that must block a
// launch.
func RequiredFailures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}
