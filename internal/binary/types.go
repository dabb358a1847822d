package binary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// Family is a driver family the engine knows how to resolve.
type Family string

const (
	// FamilyChrome is chromedriver.
	FamilyChrome Family = "chrome"
	// FamilyFirefox is geckodriver.
	FamilyFirefox Family = "firefox"
	// FamilyIE is IEDriverServer.
	FamilyIE Family = "ie"
	// FamilyEdge is msedgedriver.
	FamilyEdge Family = "edge"
	// FamilyOpera is operadriver.
	FamilyOpera Family = "opera"
	// FamilyGrid is the Selenium standalone server jar.
	FamilyGrid Family = "grid"
)

// String returns the string representation of the family
func (f Family) String() string {
	return string(f)
}

var familyAliases = map[string]Family{
	"chrome":           FamilyChrome,
	"chromedriver":     FamilyChrome,
	"firefox":          FamilyFirefox,
	"gecko":            FamilyFirefox,
	"geckodriver":      FamilyFirefox,
	"ie":               FamilyIE,
	"iexplorer":        FamilyIE,
	"internetexplorer": FamilyIE,
	"iedriverserver":   FamilyIE,
	"edge":             FamilyEdge,
	"msedge":           FamilyEdge,
	"msedgedriver":     FamilyEdge,
	"opera":            FamilyOpera,
	"operadriver":      FamilyOpera,
	"grid":             FamilyGrid,
	"selenium-server":  FamilyGrid,
}

// ParseFamily maps a user supplied name (case-insensitive, common aliases
// accepted) to a Family.
func ParseFamily(name string) (Family, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	if f, ok := familyAliases[normalized]; ok {
		return f, nil
	}
	return "", typed(ErrUnknownFamily, nil, "family", name)
}

// Families returns every known family in a stable order.
func Families() []Family {
	out := make([]Family, 0, len(familyTable))
	for f := range familyTable {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ArchiveFormat is the packaging of a downloadable artifact.
type ArchiveFormat string

const (
	// FormatZip is a zip archive.
	FormatZip ArchiveFormat = "zip"
	// FormatTarGz is a gzip compressed tar archive.
	FormatTarGz ArchiveFormat = "tar.gz"
	// FormatJar is a file that is used as downloaded.
	FormatJar ArchiveFormat = "jar"
)

// Release describes one downloadable driver artifact.
type Release struct {
	Family     Family
	Version    string
	Platform   platform.Key
	URL        string
	Format     ArchiveFormat
	Executable string // file name of the driver once installed
	Pattern    string // glob matched against archive entry base names
}

// BinaryInfo is handed back to callers of Setup.
type BinaryInfo struct {
	// Property is the logical name the automation layer looks up,
	// e.g. "webdriver.chrome.driver".
	Property string
	// Path is the absolute path of the driver executable.
	Path string
}

// String returns "property=path".
func (b BinaryInfo) String() string {
	return fmt.Sprintf("%s=%s", b.Property, b.Path)
}

// VersionSource records how a version was chosen.
type VersionSource int

const (
	// SourceExplicit is a caller pinned version.
	SourceExplicit VersionSource = iota
	// SourceBrowser is a version matched to the installed browser.
	SourceBrowser
	// SourceLatest is the newest published release.
	SourceLatest
)

// String returns the string representation of the source
func (s VersionSource) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceBrowser:
		return "browser"
	case SourceLatest:
		return "latest"
	default:
		return "unknown"
	}
}

// Resolved is the outcome of version resolution.
type Resolved struct {
	Version        string
	Source         VersionSource
	BrowserVersion string // set when Source is SourceBrowser
	Cached         bool   // answered from the resolved-version cache
}

// SetupResult contains information about a completed Setup, for logging.
type SetupResult struct {
	Info       BinaryInfo
	Resolved   Resolved
	Platform   platform.Key
	CacheHit   bool
	Downloaded bool
	Duration   time.Duration
}
