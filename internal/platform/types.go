// Package platform detects the host operating system and CPU word width that
// select which driver artifact variant is downloaded.
//
// Detection uses runtime.GOOS/GOARCH first and asks gopsutil for the kernel
// architecture when GOARCH alone does not say how wide the machine is. The
// result is a read-only fact for the lifetime of the process; use Cached to
// compute it once.
package platform

import (
	"context"
	"fmt"
)

// OsType is the driver-vendor view of an operating system.
type OsType string

const (
	OsWin   OsType = "win"
	OsMac   OsType = "mac"
	OsLinux OsType = "linux"
)

// Bits is the CPU word width of a platform.
type Bits int

const (
	Bits32 Bits = 32
	Bits64 Bits = 64
)

// Linux distribution family constants (informational only).
const (
	FamilyDebian  = "debian"
	FamilyRHEL    = "rhel"
	FamilyFedora  = "fedora"
	FamilySUSE    = "suse"
	FamilyArch    = "arch"
	FamilyAlpine  = "alpine"
	FamilyUnknown = "unknown"
)

// Key identifies which artifact variant a driver family has to publish for
// this host, e.g. linux64 or win32.
type Key struct {
	OS   OsType
	Bits Bits
}

// String returns the vendor style "<os><bits>" form, e.g. "linux64".
func (k Key) String() string {
	return fmt.Sprintf("%s%d", k.OS, k.Bits)
}

// WithBits returns a copy of the key with the word width replaced.
func (k Key) WithBits(b Bits) Key {
	k.Bits = b
	return k
}

// IsWindows reports whether the key targets Windows.
func (k Key) IsWindows() bool {
	return k.OS == OsWin
}

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64", "386", "arm" (normalized)
	ArchRaw  string // original GOARCH or kernel arch (e.g. "x86_64", "aarch64")
	Bits     Bits   // 32 or 64
	Platform string // distro ID (Linux only, e.g. "ubuntu")
	Family   string // canonical distro family (Linux only)
	Version  string // distro version (Linux only)
}

// Key converts the detected information into an artifact key. Operating
// systems without their own driver builds are treated as Linux.
func (i *Info) Key() Key {
	bits := i.Bits
	if bits != Bits32 {
		bits = Bits64
	}
	return Key{OS: osType(i.OS), Bits: bits}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// Is64Bit returns true if the host word width is 64 bits.
func (i *Info) Is64Bit() bool {
	return i.Bits != Bits32
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
