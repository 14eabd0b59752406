// Package launcher coordinates a full stack launch from preflight to the
// foreground compose up.
//
// The pipeline runs under an exclusive file lock: host preflight, checkout
// freshness, persisted runtime state, the device setup gate, ACME domain
// resolution for the web front end, manifest composition with release
// pinning, service selection, best-effort image pulls, echo-cancellation
// setup when voice services are selected, and finally the attached compose
// up that blocks until the stack stops.
//
// Collaborators arrive as narrow interfaces so tests can drive the pipeline
// without docker, git, or a sound server.
package launcher
