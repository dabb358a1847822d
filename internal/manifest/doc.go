// Package manifest parses driver manifests: Lua files that declare which
// WebDriver binaries a project needs.
//
// # Format
//
// A manifest assigns a global drivers table. Entries are either a family
// name, optionally pinned with "@version", or a table of options:
//
//	defaults = { target = "./.drivers" }
//
//	drivers = {
//	  "firefox",
//	  "chrome@114.0.5735.90",
//	  { family = "edge", arch = 64, strict = true },
//	  platform.is_windows and { family = "ie", arch = 32 } or nil,
//	}
//
// The read-only platform table from the platform package is available, so
// entries can be chosen per host. Entries that evaluate to nil are skipped.
// Values in defaults apply to every entry that does not set them.
//
// # Sandbox
//
// Manifests run in a restricted gopher-lua VM. The os, io and debug
// libraries are removed, as are require, dofile, loadfile, load and
// loadstring. Evaluation is bound to the caller's context.
//
// # Sensitive data
//
// DetectSensitiveData flags proxy URLs carrying credentials and other
// secrets written directly into a manifest.
package manifest
