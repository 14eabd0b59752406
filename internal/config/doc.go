// Package config loads, normalizes, and validates Juno configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COMPOSE_PROJECT_NAME. The Config type centralizes every knob the launcher
// and CLI need: the stack checkout location, compose layer names, image
// coordinates for release pinning, audio device patterns, and provisioning
// script settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
