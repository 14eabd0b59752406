// Package provision gates launches on the device setup script.
//
// The stack ships a setup script that prepares the host (container runtime
// tweaks, udev rules, power profile). The script declares its own version as
// a VERSION constant; the gate compares it against the version recorded in
// runtime state and runs the script attached to the terminal when the
// record is missing, unreadable, or older. A script failure aborts the
// launch because the services assume a prepared host.
package provision
