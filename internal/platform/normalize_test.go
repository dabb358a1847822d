package platform

import (
	"testing"
)

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantBits Bits
		wantOK   bool
	}{
		{"amd64", "amd64", "amd64", Bits64, true},
		{"x86_64", "x86_64", "amd64", Bits64, true},
		{"arm64", "arm64", "arm64", Bits64, true},
		{"aarch64", "aarch64", "arm64", Bits64, true},
		{"i386", "i386", "386", Bits32, true},
		{"i686", "i686", "386", Bits32, true},
		{"armv7l", "armv7l", "arm", Bits32, true},
		{"ppc64le", "ppc64le", "ppc64le", Bits64, true},
		{"unknown", "unknown", "", 0, false},
		{"empty", "", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, bits, ok := normalizeArch(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("normalizeArch() ok = %v, want %v", ok, tt.wantOK)
			}
			if name != tt.wantName {
				t.Errorf("normalizeArch() name = %v, want %v", name, tt.wantName)
			}
			if bits != tt.wantBits {
				t.Errorf("normalizeArch() bits = %v, want %v", bits, tt.wantBits)
			}
		})
	}
}

func TestOsType(t *testing.T) {
	tests := []struct {
		goos string
		want OsType
	}{
		{"windows", OsWin},
		{"darwin", OsMac},
		{"linux", OsLinux},
		{"freebsd", OsLinux},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			if got := osType(tt.goos); got != tt.want {
				t.Errorf("osType(%q) = %v, want %v", tt.goos, got, tt.want)
			}
		})
	}
}

func TestNormalizePlatform(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ubuntu", "ubuntu", "ubuntu"},
		{"Ubuntu uppercase", "Ubuntu", "ubuntu"},
		{"with spaces", "  ubuntu  ", "ubuntu"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePlatform(tt.input); got != tt.want {
				t.Errorf("normalizePlatform() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapFamily(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debian", FamilyDebian},
		{"Ubuntu", FamilyDebian},
		{"centos", FamilyRHEL},
		{"manjaro", FamilyArch},
		{"plan9", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mapFamily(tt.input); got != tt.want {
				t.Errorf("mapFamily(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
