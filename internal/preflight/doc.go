// Package preflight provides readiness checks for the filesystem paths and
// host binaries a stack launch depends on.
//
// These checks run in two contexts:
//   - The launcher calls Run before doing any work. A failed required check
//     aborts the launch early instead of letting docker fail minutes in.
//   - The CLI "juno doctor" command uses the same results to display host
//     health, including optional tools.
//
// Checks are local and cheap: stat, access bits, and PATH lookups.
package preflight
