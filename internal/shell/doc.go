// Package shell renders driver paths as environment assignments for the
// user's shell, so that
//
//	eval "$(wdb setup chrome --export)"
//
// makes WEBDRIVER_CHROME_DRIVER available to the test runner.
//
// # Shell Detection
//
// Shell detection tries, in order:
//  1. $SHELL environment variable (most reliable)
//  2. Parent process name, via gopsutil
//
// When neither names a supported shell, POSIX syntax is used.
//
// # Quoting
//
// Values are always quoted for the target shell: single quotes for bash,
// zsh and fish, and single quotes with doubled quotes for PowerShell.
package shell
