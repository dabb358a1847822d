package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// Parser represents a Lua manifest parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new manifest parser with the given platform detector.
// A nil detector leaves the platform table undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and parses the manifest at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua manifest from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Manifest, error) {
	L := newSandboxedVM(ctx)
	defer L.Close()

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractManifest(L)
}

// ParseError represents a manifest parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractManifest reads the drivers global, applying defaults.
func extractManifest(L *lua.LState) (*Manifest, error) {
	driversVal := L.GetGlobal(luaGlobalDrivers)
	if driversVal.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'drivers' table",
			Detail:  fmt.Sprintf("expected table, got %s", driversVal.Type()),
		}
	}

	var defaults Driver
	if defaultsVal := L.GetGlobal(luaGlobalDefaults); defaultsVal.Type() == lua.LTTable {
		d, err := extractOptions(defaultsVal.(*lua.LTable), Driver{})
		if err != nil {
			return nil, &ParseError{Message: "invalid 'defaults' table", Detail: err.Error()}
		}
		defaults = d
	} else if defaultsVal.Type() != lua.LTNil {
		return nil, &ParseError{
			Message: "invalid 'defaults' table",
			Detail:  fmt.Sprintf("expected table, got %s", defaultsVal.Type()),
		}
	}

	drivers, err := extractDrivers(driversVal.(*lua.LTable), defaults)
	if err != nil {
		return nil, &ParseError{Message: "invalid driver entry", Detail: err.Error()}
	}

	m := &Manifest{Drivers: drivers}
	if err := m.Validate(); err != nil {
		return nil, &ParseError{
			Message: "manifest validation failed",
			Detail:  err.Error(),
		}
	}
	return m, nil
}

// extractDrivers walks the array part of the drivers table in order.
// Holes left by platform conditionals evaluating to nil are skipped.
func extractDrivers(table *lua.LTable, defaults Driver) ([]Driver, error) {
	var drivers []Driver

	for i := 1; i <= table.MaxN(); i++ {
		value := table.RawGetInt(i)
		switch value.Type() {
		case lua.LTNil:
			continue
		case lua.LTBool:
			// "platform.is_windows and {...}" yields false on other hosts
			if !lua.LVAsBool(value) {
				continue
			}
			return nil, fmt.Errorf("drivers[%d]: unexpected boolean", i)
		case lua.LTString:
			d, err := parseShorthand(value.String(), defaults)
			if err != nil {
				return nil, fmt.Errorf("drivers[%d]: %w", i, err)
			}
			drivers = append(drivers, d)
		case lua.LTTable:
			d, err := extractOptions(value.(*lua.LTable), defaults)
			if err != nil {
				return nil, fmt.Errorf("drivers[%d]: %w", i, err)
			}
			if d.Family == "" {
				return nil, fmt.Errorf("drivers[%d]: family is required", i)
			}
			drivers = append(drivers, d)
		default:
			return nil, fmt.Errorf("drivers[%d]: expected string or table, got %s", i, value.Type())
		}
	}

	return drivers, nil
}

// parseShorthand handles "family" and "family@version".
func parseShorthand(s string, defaults Driver) (Driver, error) {
	name, version, _ := strings.Cut(strings.TrimSpace(s), "@")
	family, err := binary.ParseFamily(name)
	if err != nil {
		return Driver{}, fmt.Errorf("unknown family %q", name)
	}
	d := defaults
	d.Family = family
	d.Version = strings.TrimSpace(version)
	return d, nil
}

// extractOptions overlays the fields set in table onto base.
func extractOptions(table *lua.LTable, base Driver) (Driver, error) {
	d := base
	var errs []error

	str := func(field string, dst *string) {
		switch v := table.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTString:
			*dst = strings.TrimSpace(v.String())
		case lua.LTNumber:
			// version = 3.9 is common enough to accept
			*dst = v.String()
		default:
			errs = append(errs, fmt.Errorf("%s: expected string, got %s", field, v.Type()))
		}
	}
	flag := func(field string, dst *bool) {
		switch v := table.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTBool:
			*dst = bool(v.(lua.LBool))
		default:
			errs = append(errs, fmt.Errorf("%s: expected boolean, got %s", field, v.Type()))
		}
	}

	var family string
	str(luaFieldFamily, &family)
	if family != "" {
		f, err := binary.ParseFamily(family)
		if err != nil {
			errs = append(errs, fmt.Errorf("unknown family %q", family))
		}
		d.Family = f
	}

	str(luaFieldVersion, &d.Version)
	str(luaFieldTarget, &d.Target)
	str(luaFieldProxy, &d.Proxy)
	str(luaFieldChecksum, &d.Checksum)
	str(luaFieldKeyring, &d.Keyring)
	flag(luaFieldStrict, &d.Strict)
	flag(luaFieldClear, &d.Clear)

	if v := table.RawGetString(luaFieldAuto); v.Type() != lua.LTNil {
		var auto bool
		flag(luaFieldAuto, &auto)
		d.Auto = &auto
	}

	switch v := table.RawGetString(luaFieldArch); v.Type() {
	case lua.LTNil:
	case lua.LTNumber:
		d.Arch = platform.Bits(lua.LVAsNumber(v))
	case lua.LTString:
		switch strings.ToLower(v.String()) {
		case "32", "x86", "i386", "32bit":
			d.Arch = platform.Bits32
		case "64", "x64", "amd64", "64bit":
			d.Arch = platform.Bits64
		default:
			errs = append(errs, fmt.Errorf("arch: unknown value %q", v.String()))
		}
	default:
		errs = append(errs, fmt.Errorf("arch: expected number, got %s", v.Type()))
	}

	return d, errors.Join(errs...)
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
