package binary

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/gobwas/glob"

	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// latestStrategy selects how the newest published release is discovered.
type latestStrategy int

const (
	// latestText reads a plain-text LATEST file.
	latestText latestStrategy = iota
	// latestRedirect follows a releases/latest redirect and takes the
	// last path segment of the Location header.
	latestRedirect
	// latestListing scans a bucket listing for the highest version.
	latestListing
)

// familySpec is one row of the family table. All vendor specific
// knowledge lives here; the rest of the engine is family agnostic.
type familySpec struct {
	family   Family
	property string
	driver   string // executable base name without extension
	baseURL  string
	latest   latestStrategy
	// tagPrefix is prepended to versions in release URLs; cache keys use
	// the bare version.
	tagPrefix string

	// latestPath is appended to the base for latestText and latestRedirect.
	latestPath string
	// listingPath is appended to the base to obtain the bucket listing.
	listingPath string
	// listingVersion extracts a version from a listing entry when the entry
	// is an artifact for key.
	listingVersion func(entry string, key platform.Key) (string, bool)
	// compatible reports that driver versions track browser versions and
	// the listing can be used to map one to the other.
	compatible bool

	supports func(key platform.Key) bool
	// defaultKey adjusts the detected key when no explicit arch was asked.
	defaultKey func(key platform.Key) platform.Key
	artifact   func(base, version string, key platform.Key) (string, ArchiveFormat)
	executable func(version string, key platform.Key) string
	// pattern matches the executable's base name inside the archive, which
	// may differ in case or name from the installed executable.
	pattern string
}

var familyTable = map[Family]*familySpec{
	FamilyChrome: {
		family:      FamilyChrome,
		property:    "webdriver.chrome.driver",
		driver:      "chromedriver",
		baseURL:     "https://chromedriver.storage.googleapis.com",
		latest:      latestText,
		latestPath:  "/LATEST_RELEASE",
		listingPath: "/",
		listingVersion: func(entry string, key platform.Key) (string, bool) {
			return versionDir(entry, "chromedriver_"+key.String()+".zip")
		},
		compatible: true,
		supports: func(key platform.Key) bool {
			return key.IsWindows() || key.Bits == platform.Bits64
		},
		defaultKey: func(key platform.Key) platform.Key {
			// Windows builds are only published as 32-bit.
			if key.IsWindows() {
				return key.WithBits(platform.Bits32)
			}
			return key
		},
		artifact: func(base, version string, key platform.Key) (string, ArchiveFormat) {
			return fmt.Sprintf("%s/%s/chromedriver_%s.zip", base, version, key), FormatZip
		},
		executable: exeName("chromedriver"),
		pattern:    driverPattern("chromedriver"),
	},
	FamilyFirefox: {
		family:     FamilyFirefox,
		property:   "webdriver.gecko.driver",
		driver:     "geckodriver",
		baseURL:    "https://github.com/mozilla/geckodriver/releases",
		latest:     latestRedirect,
		latestPath: "/latest",
		tagPrefix:  "v",
		supports:   func(platform.Key) bool { return true },
		artifact: func(base, version string, key platform.Key) (string, ArchiveFormat) {
			tag := withPrefix(version, "v")
			format := FormatTarGz
			if key.IsWindows() {
				format = FormatZip
			}
			return fmt.Sprintf("%s/download/%s/geckodriver-%s-%s.%s", base, tag, tag, geckoPlatform(key), format), format
		},
		executable: exeName("geckodriver"),
		pattern:    driverPattern("geckodriver"),
	},
	FamilyEdge: {
		family:      FamilyEdge,
		property:    "webdriver.edge.driver",
		driver:      "msedgedriver",
		baseURL:     "https://msedgedriver.azureedge.net",
		latest:      latestText,
		latestPath:  "/LATEST_STABLE",
		listingPath: "/?restype=container&comp=list",
		listingVersion: func(entry string, key platform.Key) (string, bool) {
			return versionDir(entry, "edgedriver_"+key.String()+".zip")
		},
		compatible: true,
		supports: func(key platform.Key) bool {
			return !(key.OS == platform.OsMac && key.Bits == platform.Bits32)
		},
		artifact: func(base, version string, key platform.Key) (string, ArchiveFormat) {
			return fmt.Sprintf("%s/%s/edgedriver_%s.zip", base, version, key), FormatZip
		},
		executable: exeName("msedgedriver"),
		// Legacy EdgeHTML releases ship MicrosoftWebDriver.exe.
		pattern: driverPattern("msedgedriver", "MicrosoftWebDriver"),
	},
	FamilyOpera: {
		family:     FamilyOpera,
		property:   "webdriver.opera.driver",
		driver:     "operadriver",
		baseURL:    "https://github.com/operasoftware/operachromiumdriver/releases",
		latest:     latestRedirect,
		latestPath: "/latest",
		tagPrefix:  "v.",
		supports: func(key platform.Key) bool {
			return !(key.OS == platform.OsMac && key.Bits == platform.Bits32)
		},
		artifact: func(base, version string, key platform.Key) (string, ArchiveFormat) {
			return fmt.Sprintf("%s/download/%s/operadriver_%s.zip", base, withPrefix(version, "v."), key), FormatZip
		},
		executable: exeName("operadriver"),
		pattern:    driverPattern("operadriver"),
	},
	FamilyIE: {
		family:      FamilyIE,
		property:    "webdriver.ie.driver",
		driver:      "IEDriverServer",
		baseURL:     "https://selenium-release.storage.googleapis.com",
		latest:      latestListing,
		listingPath: "/",
		listingVersion: func(entry string, key platform.Key) (string, bool) {
			return versionFile(entry, "IEDriverServer_"+ieArch(key)+"_", ".zip")
		},
		supports: func(key platform.Key) bool { return key.IsWindows() },
		artifact: func(base, version string, key platform.Key) (string, ArchiveFormat) {
			return fmt.Sprintf("%s/%s/IEDriverServer_%s_%s.zip", base, majorMinor(version), ieArch(key), version), FormatZip
		},
		executable: func(string, platform.Key) string { return "IEDriverServer.exe" },
		pattern:    foldPattern("IEDriverServer.exe"),
	},
	FamilyGrid: {
		family:      FamilyGrid,
		property:    "webdriver.grid.server",
		driver:      "selenium-server-standalone",
		baseURL:     "https://selenium-release.storage.googleapis.com",
		latest:      latestListing,
		listingPath: "/",
		listingVersion: func(entry string, _ platform.Key) (string, bool) {
			return versionFile(entry, "selenium-server-standalone-", ".jar")
		},
		supports: func(platform.Key) bool { return true },
		artifact: func(base, version string, _ platform.Key) (string, ArchiveFormat) {
			return fmt.Sprintf("%s/%s/selenium-server-standalone-%s.jar", base, majorMinor(version), version), FormatJar
		},
		executable: func(version string, _ platform.Key) string {
			return "selenium-server-standalone-" + version + ".jar"
		},
	},
}

// lookupFamily returns the table row for f.
func lookupFamily(f Family) (*familySpec, error) {
	spec, ok := familyTable[f]
	if !ok {
		return nil, typed(ErrUnknownFamily, nil, "family", string(f))
	}
	return spec, nil
}

// Property returns the published property name for f.
func Property(f Family) (string, error) {
	spec, err := lookupFamily(f)
	if err != nil {
		return "", err
	}
	return spec.property, nil
}

// Supports reports whether f publishes an artifact for key.
func Supports(f Family, key platform.Key) bool {
	spec, ok := familyTable[f]
	return ok && spec.supports(key)
}

// bareVersion strips the family's release tag prefix so that "v0.33.0"
// and "0.33.0" name the same cache entry.
func (s *familySpec) bareVersion(version string) string {
	if s.tagPrefix == "" {
		return version
	}
	return strings.TrimPrefix(strings.TrimPrefix(version, s.tagPrefix), "v")
}

// Mirrors maps a family to an alternative base URL. Values may be
// http(s) URLs or s3://bucket/prefix locations.
type Mirrors map[Family]string

func (s *familySpec) base(mirrors Mirrors) string {
	if m, ok := mirrors[s.family]; ok && m != "" {
		return strings.TrimRight(m, "/")
	}
	return s.baseURL
}

// Locate computes the download location of the artifact for family at
// version on key. It performs no I/O.
func Locate(family Family, version string, key platform.Key, mirrors Mirrors) (Release, error) {
	spec, err := lookupFamily(family)
	if err != nil {
		return Release{}, err
	}
	if !spec.supports(key) {
		return Release{}, typed(ErrUnsupportedPlatform, nil, "family", string(family), "platform", key.String())
	}
	if version == "" {
		return Release{}, typed(ErrVersionResolution, nil, "family", string(family), "reason", "empty version")
	}

	url, format := spec.artifact(spec.base(mirrors), version, key)
	exe := spec.executable(version, key)
	return Release{
		Family:     family,
		Version:    version,
		Platform:   key,
		URL:        url,
		Format:     format,
		Executable: exe,
		Pattern:    spec.pattern,
	}, nil
}

func exeName(name string) func(string, platform.Key) string {
	return func(_ string, key platform.Key) string {
		if key.IsWindows() {
			return name + ".exe"
		}
		return name
	}
}

// driverPattern matches any of names with or without an .exe suffix.
func driverPattern(names ...string) string {
	alts := make([]string, 0, len(names)*3)
	for _, n := range names {
		alts = append(alts, n, n+".exe", n+".EXE")
	}
	return "{" + strings.Join(alts, ",") + "}"
}

// foldPattern matches name in any letter case.
func foldPattern(name string) string {
	var b strings.Builder
	for _, r := range name {
		lower, upper := unicode.ToLower(r), unicode.ToUpper(r)
		if lower == upper {
			b.WriteString(glob.QuoteMeta(string(r)))
			continue
		}
		b.WriteString("[" + string(lower) + string(upper) + "]")
	}
	return b.String()
}

func geckoPlatform(key platform.Key) string {
	switch key.OS {
	case platform.OsMac:
		return "macos"
	default:
		return fmt.Sprintf("%s%d", key.OS, key.Bits)
	}
}

func ieArch(key platform.Key) string {
	if key.Bits == platform.Bits64 {
		return "x64"
	}
	return "Win32"
}

// withPrefix prepends prefix to a release tag unless it is already there.
func withPrefix(version, prefix string) string {
	if strings.HasPrefix(version, prefix) {
		return version
	}
	return prefix + strings.TrimPrefix(version, "v")
}

// majorMinor returns the first two dotted components of version.
func majorMinor(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return version
	}
	return parts[0] + "." + parts[1]
}

// versionDir matches listing entries shaped "<version>/<file>".
func versionDir(entry, file string) (string, bool) {
	dir, name := path.Split(entry)
	if name != file || dir == "" {
		return "", false
	}
	version := strings.Trim(dir, "/")
	if strings.Contains(version, "/") || version == "" {
		return "", false
	}
	return version, true
}

// versionFile matches listing entries whose base name is prefix+version+suffix.
func versionFile(entry, prefix, suffix string) (string, bool) {
	name := path.Base(entry)
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	version := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	if version == "" {
		return "", false
	}
	return version, true
}
