package audio

import (
	"log/slog"

	"juno/internal/logging"
)

// ProbeRate returns the device's native sample rate in Hz. A record without
// a usable rate yields the fallback and one warning: a rate mismatch only
// degrades cancellation quality, so startup must not block on it.
func ProbeRate(device Device, fallbackHz int, logger *slog.Logger) int {
	if device.SampleRateHz > 0 {
		return device.SampleRateHz
	}
	if fallbackHz <= 0 {
		fallbackHz = DefaultRateHz
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger.Warn("device reports no usable sample rate; using fallback",
		logging.String(logging.FieldDevice, device.Name),
		logging.Int("fallback_hz", fallbackHz),
	)
	return fallbackHz
}
