// Package main hosts the juno CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into stack
// launches, audio device inspection, runtime state edits, configuration
// scaffolding, and host checkups. It centralizes configuration resolution
// and logger construction so subcommands stay declarative; the launch
// pipeline itself lives in the internal packages.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
