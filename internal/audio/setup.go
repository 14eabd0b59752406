package audio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"juno/internal/logging"
)

// SetupConfig carries the discovery settings for one negotiation run.
type SetupConfig struct {
	InputPatterns  []string
	OutputPatterns []string
	FallbackRateHz int
	// DeviceWait > 0 arms a one-shot hotplug wait when input resolution
	// finds nothing, then retries the resolve once.
	DeviceWait time.Duration
}

// Setup resolves both master devices, probes the capture rate, and
// negotiates the echo-cancellation path. On resolution failure the filtered
// inventory is logged so the operator can see what was available.
func Setup(ctx context.Context, server Server, cfg SetupConfig, logger *slog.Logger) (*AECConfig, error) {
	log := logging.NewComponentLogger(logger, "audio")
	resolver := NewResolver(server, logger)

	source, err := resolver.Resolve(ctx, Input, cfg.InputPatterns)
	if err != nil && cfg.DeviceWait > 0 && errors.Is(err, ErrNoDeviceMatch) {
		log.Info("no input device matched; waiting for a sound device to appear",
			logging.Duration("wait", cfg.DeviceWait))
		if WaitForSoundDevice(ctx, log, cfg.DeviceWait) {
			source, err = resolver.Resolve(ctx, Input, cfg.InputPatterns)
		}
	}
	if err != nil {
		logInventory(log, err)
		return nil, err
	}

	sink, err := resolver.Resolve(ctx, Output, cfg.OutputPatterns)
	if err != nil {
		logInventory(log, err)
		return nil, err
	}

	rate := ProbeRate(source, cfg.FallbackRateHz, log)
	return NewNegotiator(server, logger).Negotiate(ctx, source, sink, rate)
}

// logInventory prints the candidate list carried by a NoMatchError, one line
// per device.
func logInventory(log *slog.Logger, err error) {
	var noMatch *NoMatchError
	if !errors.As(err, &noMatch) {
		return
	}
	log.Error("device resolution failed",
		logging.String("direction", noMatch.Direction.String()),
		logging.Int("candidates", len(noMatch.Devices)),
	)
	for _, device := range noMatch.Devices {
		log.Info("available device",
			logging.String(logging.FieldDevice, device.Name),
			logging.String("description", device.Description),
		)
	}
}
