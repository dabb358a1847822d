package manifest

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// Manifest is a parsed driver manifest.
type Manifest struct {
	Drivers []Driver
}

// Driver is one entry of the drivers table.
type Driver struct {
	Family   binary.Family
	Version  string
	Arch     platform.Bits // 0 means detected
	Target   string
	Proxy    string
	Strict   bool
	Auto     *bool // nil means enabled
	Clear    bool
	Checksum string
	Keyring  string
}

// Request converts the entry into a setup request.
func (d Driver) Request() binary.Request {
	req := binary.NewRequest(d.Family).
		Version(d.Version).
		Arch(d.Arch).
		TargetPath(d.Target).
		Proxy(d.Proxy).
		Checksum(d.Checksum).
		Keyring(d.Keyring)
	if d.Strict {
		req = req.StrictDownload()
	}
	if d.Auto != nil && !*d.Auto {
		req = req.DisableAutoCheck()
	}
	if d.Clear {
		req = req.ClearBinaryCache()
	}
	return req
}

// String identifies the entry in messages.
func (d Driver) String() string {
	return d.Request().String()
}

// Requests returns one setup request per entry, in manifest order.
func (m *Manifest) Requests() []binary.Request {
	reqs := make([]binary.Request, 0, len(m.Drivers))
	for _, d := range m.Drivers {
		reqs = append(reqs, d.Request())
	}
	return reqs
}

// Validate checks every entry and rejects duplicates.
func (m *Manifest) Validate() error {
	seen := make(map[string]int)
	for i, d := range m.Drivers {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("drivers[%d]: %w", i+1, err)
		}
		id := fmt.Sprintf("%s|%d|%s", d.Family, d.Arch, d.Target)
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("drivers[%d]: %s already declared at drivers[%d]", i+1, d.Family, prev)
		}
		seen[id] = i + 1
	}
	return nil
}

// Validate checks a single entry.
func (d Driver) Validate() error {
	if d.Family == "" {
		return fmt.Errorf("family is required")
	}
	if _, err := binary.ParseFamily(string(d.Family)); err != nil {
		return fmt.Errorf("unknown family %q (supported: %s)", d.Family, familyList())
	}
	switch d.Arch {
	case 0, platform.Bits32, platform.Bits64:
	default:
		return fmt.Errorf("arch must be 32 or 64, got %d", d.Arch)
	}
	if strings.ContainsAny(d.Version, `/\`) || d.Version == "." || d.Version == ".." {
		return fmt.Errorf("invalid version %q", d.Version)
	}
	return nil
}

func familyList() string {
	names := make([]string, 0, 6)
	for _, f := range binary.Families() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
