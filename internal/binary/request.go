package binary

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// Request describes one driver to set up. It is an immutable value: every
// builder method returns a modified copy.
//
//	info, err := binary.Chrome().Version("114.0.5735.90").Arch64().Setup(ctx, mgr)
type Request struct {
	family      Family
	version     string
	arch        platform.Bits
	targetPath  string
	proxy       string
	strict      bool
	noAutoCheck bool
	clearCache  bool
	checksum    string
	keyring     string
}

// NewRequest starts a request for family.
func NewRequest(family Family) Request {
	return Request{family: family}
}

// Chrome starts a chromedriver request.
func Chrome() Request { return NewRequest(FamilyChrome) }

// Firefox starts a geckodriver request.
func Firefox() Request { return NewRequest(FamilyFirefox) }

// IE starts an IEDriverServer request.
func IE() Request { return NewRequest(FamilyIE) }

// Edge starts an msedgedriver request.
func Edge() Request { return NewRequest(FamilyEdge) }

// Opera starts an operadriver request.
func Opera() Request { return NewRequest(FamilyOpera) }

// Grid starts a Selenium standalone server request.
func Grid() Request { return NewRequest(FamilyGrid) }

// Version pins the driver version; no browser probe or lookup is done.
func (r Request) Version(v string) Request {
	r.version = strings.TrimSpace(v)
	return r
}

// Arch32 forces the 32-bit artifact.
func (r Request) Arch32() Request {
	r.arch = platform.Bits32
	return r
}

// Arch64 forces the 64-bit artifact.
func (r Request) Arch64() Request {
	r.arch = platform.Bits64
	return r
}

// Arch forces an artifact word width; zero restores detection.
func (r Request) Arch(bits platform.Bits) Request {
	r.arch = bits
	return r
}

// TargetPath sets the cache root for this request.
func (r Request) TargetPath(dir string) Request {
	r.targetPath = dir
	return r
}

// Proxy routes this request's downloads through proxyURL
// (http, https or socks5).
func (r Request) Proxy(proxyURL string) Request {
	r.proxy = proxyURL
	return r
}

// StrictDownload always downloads, even when a valid cache entry exists.
func (r Request) StrictDownload() Request {
	r.strict = true
	return r
}

// DisableAutoCheck skips the installed browser probe.
func (r Request) DisableAutoCheck() Request {
	r.noAutoCheck = true
	return r
}

// ClearBinaryCache removes the cache entry for the resolved key first.
func (r Request) ClearBinaryCache() Request {
	r.clearCache = true
	return r
}

// Checksum pins the expected SHA256 of the downloaded artifact.
func (r Request) Checksum(sha256 string) Request {
	r.checksum = sha256
	return r
}

// Keyring requires a detached OpenPGP signature verified against the
// keyring at path.
func (r Request) Keyring(path string) Request {
	r.keyring = path
	return r
}

// Family returns the requested family.
func (r Request) Family() Family {
	return r.family
}

// PinnedVersion returns the explicit version, or "".
func (r Request) PinnedVersion() string {
	return r.version
}

// String summarises the request for logs.
func (r Request) String() string {
	version := r.version
	if version == "" {
		version = "auto"
	}
	s := fmt.Sprintf("%s@%s", r.family, version)
	if r.arch != 0 {
		s += fmt.Sprintf("/%dbit", r.arch)
	}
	return s
}

// Setup runs the request against m.
func (r Request) Setup(ctx context.Context, m *Manager) (*BinaryInfo, error) {
	return m.Setup(ctx, r)
}
