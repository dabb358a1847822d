package platform

import (
	"strings"
)

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// normalizeArch converts GOARCH or `uname -m` values to a normalized name and
// its word width. ok is false when the value says nothing reliable about the
// width.
func normalizeArch(arch string) (name string, bits Bits, ok bool) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64":
		return "amd64", Bits64, true
	case "arm64", "aarch64", "arm64e":
		return "arm64", Bits64, true
	case "386", "i386", "i486", "i586", "i686", "x86":
		return "386", Bits32, true
	case "arm", "armv6l", "armv7l", "armv7":
		return "arm", Bits32, true
	case "ppc64", "ppc64le", "s390x", "mips64", "mips64le", "riscv64", "loong64":
		return strings.ToLower(arch), Bits64, true
	default:
		return "", 0, false
	}
}

// osType maps a GOOS value to the vendor OS naming.
func osType(goos string) OsType {
	switch goos {
	case "windows":
		return OsWin
	case "darwin":
		return OsMac
	default:
		return OsLinux
	}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
