// Package logging builds the slog loggers used across Juno.
//
// It provides a console handler that renders one human-readable line per
// record (timestamp, level, component prefix, message, k=v attributes) and a
// JSON handler for machine consumption, plus small helpers for attribute
// construction and component-scoped child loggers. Output can fan out to
// stdout, stderr, and log files in one logger.
package logging
