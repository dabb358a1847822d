package binary

import (
	"testing"

	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

func TestRequestImmutable(t *testing.T) {
	base := Chrome()
	pinned := base.Version(" 114.0.5735.90 ").Arch32().StrictDownload()

	if base.PinnedVersion() != "" || base.arch != 0 || base.strict {
		t.Errorf("builder mutated the original request: %+v", base)
	}
	if pinned.PinnedVersion() != "114.0.5735.90" {
		t.Errorf("version = %q, want trimmed", pinned.PinnedVersion())
	}
	if pinned.arch != platform.Bits32 || !pinned.strict {
		t.Errorf("pinned = %+v", pinned)
	}
}

func TestRequestString(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Chrome(), "chrome@auto"},
		{Firefox().Version("0.33.0"), "firefox@0.33.0"},
		{Edge().Arch64(), "edge@auto/64bit"},
		{IE().Version("3.150.1").Arch(platform.Bits32), "ie@3.150.1/32bit"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.req.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestFamilies(t *testing.T) {
	tests := []struct {
		req  Request
		want Family
	}{
		{Chrome(), FamilyChrome},
		{Firefox(), FamilyFirefox},
		{IE(), FamilyIE},
		{Edge(), FamilyEdge},
		{Opera(), FamilyOpera},
		{Grid(), FamilyGrid},
	}

	for _, tt := range tests {
		if got := tt.req.Family(); got != tt.want {
			t.Errorf("Family() = %s, want %s", got, tt.want)
		}
	}
}
