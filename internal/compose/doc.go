// Package compose builds and runs the docker compose manifest for a stack
// launch.
//
// The Composer merges the configured compose layers through `docker compose
// config`, pins every product image to a requested release tag by rewriting
// the merged document, and hands back a Manifest that can be inspected or
// written to a temporary file. The Runner executes pull and up against that
// file, keeping pulls best-effort so an offline device can still start from
// local images.
//
// All docker invocations go through injectable hooks so tests never spawn
// the real binary.
package compose
