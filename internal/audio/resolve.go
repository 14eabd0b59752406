package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"juno/internal/logging"
)

// ErrNoDeviceMatch reports that no configured pattern matched any device.
var ErrNoDeviceMatch = errors.New("no audio device matched")

// NoMatchError carries the filtered inventory so callers can show the full
// candidate list when resolution fails.
type NoMatchError struct {
	Direction Direction
	Patterns  []string
	Devices   []Device
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no %s device matched patterns [%s] among %d candidates",
		e.Direction, strings.Join(e.Patterns, ", "), len(e.Devices))
}

func (e *NoMatchError) Unwrap() error { return ErrNoDeviceMatch }

// Resolver finds physical devices by pattern priority.
type Resolver struct {
	server Server
	logger *slog.Logger
}

// NewResolver constructs a resolver over the given audio server.
func NewResolver(server Server, logger *slog.Logger) *Resolver {
	return &Resolver{
		server: server,
		logger: logging.NewComponentLogger(logger, "audio"),
	}
}

// Resolve returns the first device matching the highest-priority pattern.
//
// Inputs never resolve to monitor devices: those are playback taps, not
// physical microphones. Within one pattern's matches a stereo analog
// profile wins; otherwise the first match in inventory order does. The
// search is read-only.
func (r *Resolver) Resolve(ctx context.Context, direction Direction, patterns []string) (Device, error) {
	devices, err := r.server.ListDevices(ctx, direction)
	if err != nil {
		return Device{}, fmt.Errorf("list %s devices: %w", direction, err)
	}

	candidates := devices
	if direction == Input {
		candidates = make([]Device, 0, len(devices))
		for _, device := range devices {
			if device.Monitor {
				continue
			}
			candidates = append(candidates, device)
		}
	}

	for _, pattern := range patterns {
		matcher, err := wordBoundaryPattern(pattern)
		if err != nil {
			r.logger.Debug("skipping unusable device pattern", logging.String("pattern", pattern), logging.Error(err))
			continue
		}
		var matches []Device
		for _, device := range candidates {
			if matcher.MatchString(device.Name) {
				matches = append(matches, device)
			}
		}
		if len(matches) == 0 {
			continue
		}
		chosen := matches[0]
		for _, match := range matches {
			if hasStereoAnalogProfile(match.Name) {
				chosen = match
				break
			}
		}
		r.logger.Debug("device resolved",
			logging.String("pattern", pattern),
			logging.String(logging.FieldDevice, chosen.Name),
			logging.String("direction", direction.String()),
		)
		return chosen, nil
	}

	return Device{}, &NoMatchError{
		Direction: direction,
		Patterns:  slices.Clone(patterns),
		Devices:   candidates,
	}
}

// wordBoundaryPattern compiles a case-insensitive matcher that requires a
// non-alphanumeric character (or the string edge) on both sides of the
// pattern. \b would treat '_' as a word character and reject names like
// "usb-ANKER_PowerConf", so the boundary class is explicit.
func wordBoundaryPattern(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	return regexp.Compile(`(?i)(?:^|[^a-z0-9])` + regexp.QuoteMeta(pattern) + `(?:[^a-z0-9]|$)`)
}

func hasStereoAnalogProfile(name string) bool {
	return strings.Contains(strings.ToLower(name), "analog-stereo")
}
