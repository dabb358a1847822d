package binary

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
	"github.com/ZebulonRouseFrantzich/wdb/internal/registry"
)

const chromeVersion = "114.0.5735.90"

var chromeLinuxArchive = "/" + chromeVersion + "/chromedriver_linux64.zip"

func newTestManager(t *testing.T, vendor *fakeVendor, key platform.Key) (*Manager, *registry.Memory) {
	t.Helper()

	reg := registry.NewMemory()
	m, err := NewManager(Config{
		CacheDir: t.TempDir(),
		Detector: platform.StaticKey(key),
		Registry: reg,
		Probe:    &fakeProbe{err: ErrBrowserNotFound},
		Mirrors:  vendor.mirrors(),
		LockPoll: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, reg
}

// serveChrome publishes chromedriver for linux64 at chromeVersion.
func serveChrome(t *testing.T, vendor *fakeVendor) {
	t.Helper()
	vendor.serve("/LATEST_RELEASE", []byte(chromeVersion))
	vendor.serve(chromeLinuxArchive, zipBytes(t, map[string]string{
		"chromedriver":         "chromedriver-bin",
		"LICENSE.chromedriver": "license",
	}))
}

func assertEntries(t *testing.T, m *Manager, want int) {
	t.Helper()
	store, err := m.Store("")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	entries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != want {
		t.Errorf("cache has %d entries, want %d", len(entries), want)
	}
}

func TestNewManager_RequiresCacheDir(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Error("expected error without CacheDir")
	}
}

func TestSetup_Idempotent(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, reg := newTestManager(t, vendor, linux64)
	ctx := context.Background()

	first, err := m.SetupWithResult(ctx, Chrome())
	if err != nil {
		t.Fatalf("first Setup failed: %v", err)
	}
	if !first.Downloaded || first.CacheHit {
		t.Errorf("first setup = %+v, want a download", first)
	}
	if first.Resolved.Version != chromeVersion || first.Platform != linux64 {
		t.Errorf("resolved %s on %s", first.Resolved.Version, first.Platform)
	}

	content, err := os.ReadFile(first.Info.Path)
	if err != nil {
		t.Fatalf("driver not readable: %v", err)
	}
	if string(content) != "chromedriver-bin" {
		t.Errorf("driver content = %q", content)
	}
	if filepath.Base(first.Info.Path) != "chromedriver" {
		t.Errorf("driver path = %s", first.Info.Path)
	}

	requests := vendor.requests()

	second, err := m.SetupWithResult(ctx, Chrome())
	if err != nil {
		t.Fatalf("second Setup failed: %v", err)
	}
	if !second.CacheHit || second.Info.Path != first.Info.Path {
		t.Errorf("second setup = %+v, want cache hit at %s", second, first.Info.Path)
	}
	if vendor.requests() != requests {
		t.Errorf("second setup made %d network requests", vendor.requests()-requests)
	}

	got, ok := reg.Get("webdriver.chrome.driver")
	if !ok || got != first.Info.Path {
		t.Errorf("published %q, want %q", got, first.Info.Path)
	}
}

func TestSetup_ExplicitVersionSkipsProbe(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	probe := &fakeProbe{version: "113.0.5672.126"}

	m, err := NewManager(Config{
		CacheDir: t.TempDir(),
		Detector: platform.StaticKey(linux64),
		Probe:    probe,
		Mirrors:  vendor.mirrors(),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	result, err := m.SetupWithResult(context.Background(), Chrome().Version(chromeVersion))
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if result.Resolved.Source != SourceExplicit {
		t.Errorf("source = %s, want explicit", result.Resolved.Source)
	}
	if probe.called() != 0 {
		t.Errorf("probe called %d times", probe.called())
	}
	if vendor.hitsFor("/LATEST_RELEASE") != 0 {
		t.Error("explicit version read LATEST_RELEASE")
	}
}

func TestSetup_ArchIsolation(t *testing.T) {
	vendor := newFakeVendor(t)
	vendor.serve("/"+chromeVersion+"/chromedriver_win32.zip", zipBytes(t, map[string]string{"chromedriver.exe": "win32"}))
	vendor.serve("/"+chromeVersion+"/chromedriver_win64.zip", zipBytes(t, map[string]string{"chromedriver.exe": "win64"}))
	m, _ := newTestManager(t, vendor, win64)
	ctx := context.Background()

	def, err := m.SetupWithResult(ctx, Chrome().Version(chromeVersion))
	if err != nil {
		t.Fatalf("default Setup failed: %v", err)
	}
	if def.Platform != win32 {
		t.Errorf("default chrome platform on Windows = %s, want win32", def.Platform)
	}

	wide, err := m.SetupWithResult(ctx, Chrome().Version(chromeVersion).Arch64())
	if err != nil {
		t.Fatalf("64-bit Setup failed: %v", err)
	}
	if wide.Platform != win64 || !wide.Downloaded {
		t.Errorf("64-bit setup = %+v, want a fresh win64 download", wide)
	}
	if def.Info.Path == wide.Info.Path {
		t.Fatalf("32 and 64-bit drivers share %s", def.Info.Path)
	}

	for path, want := range map[string]string{def.Info.Path: "win32", wide.Info.Path: "win64"} {
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(content) != want {
			t.Errorf("%s = %q, want %q", path, content, want)
		}
	}
	assertEntries(t, m, 2)
}

func TestSetup_ConcurrentSingleDownload(t *testing.T) {
	vendor := newFakeVendor(t)
	archive := zipBytes(t, map[string]string{"chromedriver": "chromedriver-bin"})
	vendor.handle(chromeLinuxArchive, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write(archive)
	})
	m, _ := newTestManager(t, vendor, linux64)

	var wg sync.WaitGroup
	paths := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := m.Setup(context.Background(), Chrome().Version(chromeVersion))
			if err != nil {
				t.Errorf("Setup failed: %v", err)
				return
			}
			paths <- info.Path
		}()
	}
	wg.Wait()
	close(paths)

	var first string
	for p := range paths {
		if first == "" {
			first = p
		}
		if p != first {
			t.Errorf("setups returned different paths: %s and %s", first, p)
		}
	}
	if n := vendor.hitsFor(chromeLinuxArchive); n != 1 {
		t.Errorf("archive downloaded %d times, want 1", n)
	}
}

func TestSetup_UnsupportedPlatform(t *testing.T) {
	tests := []struct {
		name string
		key  platform.Key
		req  Request
	}{
		{"ie on linux", linux64, IE()},
		{"ie on mac", mac64, IE().Version("3.150.1")},
		{"chrome linux32", linux64, Chrome().Arch32()},
		{"edge mac32", mac32, Edge()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor := newFakeVendor(t)
			m, _ := newTestManager(t, vendor, tt.key)

			_, err := m.Setup(context.Background(), tt.req)
			if !errors.Is(err, ErrUnsupportedPlatform) {
				t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
			}
			if vendor.requests() != 0 {
				t.Errorf("unsupported platform made %d requests", vendor.requests())
			}
		})
	}
}

func TestSetup_ClearBinaryCache(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, _ := newTestManager(t, vendor, linux64)
	ctx := context.Background()
	req := Chrome().Version(chromeVersion)

	if _, err := m.Setup(ctx, req); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	result, err := m.SetupWithResult(ctx, req.ClearBinaryCache())
	if err != nil {
		t.Fatalf("clearing Setup failed: %v", err)
	}
	if !result.Downloaded {
		t.Error("clearing setup did not download")
	}
	if _, err := m.Setup(ctx, req); err != nil {
		t.Fatalf("Setup after clear failed: %v", err)
	}

	if n := vendor.hitsFor(chromeLinuxArchive); n != 2 {
		t.Errorf("archive downloaded %d times, want 2", n)
	}
}

func TestSetup_StrictDownload(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, _ := newTestManager(t, vendor, linux64)
	ctx := context.Background()
	req := Chrome().Version(chromeVersion)

	if _, err := m.Setup(ctx, req); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if _, err := m.Setup(ctx, req.StrictDownload()); err != nil {
		t.Fatalf("strict Setup failed: %v", err)
	}

	if n := vendor.hitsFor(chromeLinuxArchive); n != 2 {
		t.Errorf("archive downloaded %d times, want 2", n)
	}
	assertEntries(t, m, 1)
}

func TestSetup_CorruptedCacheHeals(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, _ := newTestManager(t, vendor, linux64)
	ctx := context.Background()
	req := Chrome().Version(chromeVersion)

	info, err := m.Setup(ctx, req)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := os.WriteFile(info.Path, []byte("truncated"), 0755); err != nil {
		t.Fatal(err)
	}

	result, err := m.SetupWithResult(ctx, req)
	if err != nil {
		t.Fatalf("Setup after corruption failed: %v", err)
	}
	if result.CacheHit {
		t.Error("corrupted entry reported as a cache hit")
	}
	content, _ := os.ReadFile(result.Info.Path)
	if string(content) != "chromedriver-bin" {
		t.Errorf("driver content = %q after heal", content)
	}
	if n := vendor.hitsFor(chromeLinuxArchive); n != 2 {
		t.Errorf("archive downloaded %d times, want 2", n)
	}
}

func TestSetup_DownloadFailure(t *testing.T) {
	vendor := newFakeVendor(t)
	m, reg := newTestManager(t, vendor, linux64)

	_, err := m.Setup(context.Background(), Chrome().Version(chromeVersion))
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	assertEntries(t, m, 0)
	if _, ok := reg.Get("webdriver.chrome.driver"); ok {
		t.Error("failed setup published a property")
	}
}

func TestSetup_ExtractionFailure(t *testing.T) {
	vendor := newFakeVendor(t)
	vendor.serve(chromeLinuxArchive, zipBytes(t, map[string]string{"README": "no driver here"}))
	m, _ := newTestManager(t, vendor, linux64)

	_, err := m.Setup(context.Background(), Chrome().Version(chromeVersion))
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	assertEntries(t, m, 0)

	store, _ := m.Store("")
	leftovers, _ := os.ReadDir(store.TempDir())
	for _, e := range leftovers {
		if strings.HasPrefix(e.Name(), "staging-") {
			t.Errorf("staging directory %s left behind", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "webdriver", "chrome", chromeVersion, "linux64")); !os.IsNotExist(err) {
		t.Error("failed extraction created the entry directory")
	}
}

func TestSetup_Checksum(t *testing.T) {
	archive := zipBytes(t, map[string]string{"chromedriver": "chromedriver-bin"})

	tests := []struct {
		name     string
		checksum string
		wantErr  bool
	}{
		{"matching", sha256Hex(archive), false},
		{"mismatch", sha256Hex([]byte("other")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor := newFakeVendor(t)
			vendor.serve(chromeLinuxArchive, archive)
			m, _ := newTestManager(t, vendor, linux64)

			_, err := m.Setup(context.Background(), Chrome().Version(chromeVersion).Checksum(tt.checksum))
			if tt.wantErr {
				if !errors.Is(err, ErrVerification) {
					t.Errorf("expected ErrVerification, got %v", err)
				}
				assertEntries(t, m, 0)
				return
			}
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			assertEntries(t, m, 1)
		})
	}
}

func TestSetup_Signature(t *testing.T) {
	signer := newTestSigner(t)
	archive := zipBytes(t, map[string]string{"chromedriver": "chromedriver-bin"})

	t.Run("signed", func(t *testing.T) {
		vendor := newFakeVendor(t)
		vendor.serve(chromeLinuxArchive, archive)
		vendor.serve(chromeLinuxArchive+signatureSuffix, signer.sign(t, archive))
		m, _ := newTestManager(t, vendor, linux64)

		if _, err := m.Setup(context.Background(), Chrome().Version(chromeVersion).Keyring(signer.keyringPath)); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	})

	t.Run("signature missing", func(t *testing.T) {
		vendor := newFakeVendor(t)
		vendor.serve(chromeLinuxArchive, archive)
		m, _ := newTestManager(t, vendor, linux64)

		_, err := m.Setup(context.Background(), Chrome().Version(chromeVersion).Keyring(signer.keyringPath))
		if !errors.Is(err, ErrVerification) {
			t.Errorf("expected ErrVerification, got %v", err)
		}
		assertEntries(t, m, 0)
	})
}

func TestSetup_Firefox(t *testing.T) {
	vendor := newFakeVendor(t)
	vendor.redirect("/latest", "/tag/v0.33.0")
	vendor.serve("/download/v0.33.0/geckodriver-v0.33.0-linux64.tar.gz", tarGzBytes(t, map[string]string{
		"geckodriver": "geckodriver-bin",
	}))
	m, reg := newTestManager(t, vendor, linux64)

	info, err := m.Setup(context.Background(), Firefox())
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	content, _ := os.ReadFile(info.Path)
	if string(content) != "geckodriver-bin" {
		t.Errorf("driver content = %q", content)
	}
	if got, _ := reg.Get("webdriver.gecko.driver"); got != info.Path {
		t.Errorf("published %q, want %q", got, info.Path)
	}
}

func TestSetup_Grid(t *testing.T) {
	vendor := newFakeVendor(t)
	vendor.serve("/", s3Listing("",
		"3.14/selenium-server-standalone-3.14.0.jar",
		"3.141/selenium-server-standalone-3.141.59.jar",
		"3.141/IEDriverServer_x64_3.141.59.zip",
	))
	vendor.serve("/3.141/selenium-server-standalone-3.141.59.jar", []byte("PK jar"))
	m, _ := newTestManager(t, vendor, linux64)

	info, err := m.Setup(context.Background(), Grid())
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if filepath.Base(info.Path) != "selenium-server-standalone-3.141.59.jar" {
		t.Errorf("path = %s", info.Path)
	}
	if info.Property != "webdriver.grid.server" {
		t.Errorf("property = %s", info.Property)
	}
}

func TestSetup_TargetPath(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, _ := newTestManager(t, vendor, linux64)
	ctx := context.Background()
	root := t.TempDir()

	info, err := m.Setup(ctx, Chrome().Version(chromeVersion).TargetPath(root))
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if !strings.HasPrefix(info.Path, root) {
		t.Errorf("path %s outside target %s", info.Path, root)
	}
	assertEntries(t, m, 0)

	if _, err := m.Setup(ctx, Chrome().Version(chromeVersion)); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if n := vendor.hitsFor(chromeLinuxArchive); n != 2 {
		t.Errorf("archive downloaded %d times, want one per cache root", n)
	}
}

func TestSetup_Cancelled(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, _ := newTestManager(t, vendor, linux64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Setup(ctx, Chrome().Version(chromeVersion))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if vendor.requests() != 0 {
		t.Errorf("cancelled setup made %d requests", vendor.requests())
	}
}

func TestSetup_UnknownFamily(t *testing.T) {
	vendor := newFakeVendor(t)
	m, _ := newTestManager(t, vendor, linux64)

	if _, err := m.Setup(context.Background(), NewRequest("netscape")); !errors.Is(err, ErrUnknownFamily) {
		t.Errorf("expected ErrUnknownFamily, got %v", err)
	}
}

func TestManagerClear(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, _ := newTestManager(t, vendor, linux64)
	ctx := context.Background()

	if _, err := m.Setup(ctx, Chrome().Version(chromeVersion)); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	assertEntries(t, m, 1)

	if err := m.Clear(ctx, "", FamilyChrome, chromeVersion, 0); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	assertEntries(t, m, 0)

	if err := m.Clear(ctx, "", FamilyChrome, "../escape", 0); err == nil {
		t.Error("expected error for invalid version")
	}
}

func TestSetup_DefaultProxy(t *testing.T) {
	archive := zipBytes(t, map[string]string{"chromedriver": "proxied-bin"})
	var proxied []string
	var mu sync.Mutex
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		proxied = append(proxied, r.URL.String())
		mu.Unlock()
		switch r.URL.Path {
		case "/LATEST_RELEASE":
			_, _ = w.Write([]byte(chromeVersion))
		case chromeLinuxArchive:
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer proxy.Close()

	m, err := NewManager(Config{
		CacheDir: t.TempDir(),
		Detector: platform.StaticKey(linux64),
		Probe:    &fakeProbe{err: ErrBrowserNotFound},
		Mirrors:  Mirrors{FamilyChrome: "http://drivers.invalid"},
		Proxy:    proxy.URL,
		LockPoll: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	info, err := m.Setup(context.Background(), Chrome())
	if err != nil {
		t.Fatalf("Setup through default proxy failed: %v", err)
	}
	content, err := os.ReadFile(info.Path)
	if err != nil || string(content) != "proxied-bin" {
		t.Errorf("driver content = %q, err = %v", content, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(proxied) != 2 {
		t.Fatalf("proxy saw %d requests, want 2: %v", len(proxied), proxied)
	}
	for _, u := range proxied {
		if !strings.HasPrefix(u, "http://drivers.invalid/") {
			t.Errorf("proxy received %s", u)
		}
	}
}

func TestSetup_RequestProxyOverridesDefault(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)

	m, err := NewManager(Config{
		CacheDir: t.TempDir(),
		Detector: platform.StaticKey(linux64),
		Probe:    &fakeProbe{err: ErrBrowserNotFound},
		Mirrors:  vendor.mirrors(),
		Proxy:    "ftp://unusable.invalid",
		LockPoll: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if _, err := m.Setup(context.Background(), Chrome()); !errors.Is(err, ErrVersionResolution) {
		t.Errorf("default proxy not applied, got %v", err)
	}

	// An explicit request proxy replaces the unusable default. The relay
	// forwards by path to the vendor.
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := http.Get(vendor.URL() + r.URL.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}))
	defer relay.Close()

	if _, err := m.Setup(context.Background(), Chrome().Proxy(relay.URL)); err != nil {
		t.Fatalf("Setup with request proxy failed: %v", err)
	}
}

func TestSetup_PinnedChecksumOnCacheHit(t *testing.T) {
	archive := zipBytes(t, map[string]string{"chromedriver": "chromedriver-bin"})

	t.Run("mismatch is rejected", func(t *testing.T) {
		vendor := newFakeVendor(t)
		vendor.serve(chromeLinuxArchive, archive)
		m, _ := newTestManager(t, vendor, linux64)
		ctx := context.Background()

		if _, err := m.Setup(ctx, Chrome().Version(chromeVersion)); err != nil {
			t.Fatalf("unpinned Setup failed: %v", err)
		}
		_, err := m.Setup(ctx, Chrome().Version(chromeVersion).Checksum(sha256Hex([]byte("not the archive"))))
		if !errors.Is(err, ErrVerification) {
			t.Fatalf("expected ErrVerification, got %v", err)
		}
		if n := vendor.hitsFor(chromeLinuxArchive); n != 2 {
			t.Errorf("archive downloaded %d times, want 2", n)
		}
		// The earlier entry survives the failed verification.
		assertEntries(t, m, 1)
	})

	t.Run("match is served from cache", func(t *testing.T) {
		vendor := newFakeVendor(t)
		vendor.serve(chromeLinuxArchive, archive)
		m, _ := newTestManager(t, vendor, linux64)
		ctx := context.Background()

		if _, err := m.Setup(ctx, Chrome().Version(chromeVersion)); err != nil {
			t.Fatalf("unpinned Setup failed: %v", err)
		}
		res, err := m.SetupWithResult(ctx, Chrome().Version(chromeVersion).Checksum("sha256:"+strings.ToUpper(sha256Hex(archive))))
		if err != nil {
			t.Fatalf("pinned Setup failed: %v", err)
		}
		if !res.CacheHit {
			t.Error("pinned Setup with the recorded checksum should hit the cache")
		}
		if n := vendor.hitsFor(chromeLinuxArchive); n != 1 {
			t.Errorf("archive downloaded %d times, want 1", n)
		}
	})
}

func TestSetup_KeyringOnUnsignedCacheHit(t *testing.T) {
	signer := newTestSigner(t)
	archive := zipBytes(t, map[string]string{"chromedriver": "chromedriver-bin"})
	vendor := newFakeVendor(t)
	vendor.serve(chromeLinuxArchive, archive)
	vendor.serve(chromeLinuxArchive+signatureSuffix, signer.sign(t, archive))
	m, _ := newTestManager(t, vendor, linux64)
	ctx := context.Background()

	if _, err := m.Setup(ctx, Chrome().Version(chromeVersion)); err != nil {
		t.Fatalf("unsigned Setup failed: %v", err)
	}

	signed := Chrome().Version(chromeVersion).Keyring(signer.keyringPath)
	res, err := m.SetupWithResult(ctx, signed)
	if err != nil {
		t.Fatalf("signed Setup failed: %v", err)
	}
	if res.CacheHit {
		t.Error("entry installed without a signature check was reused")
	}
	if n := vendor.hitsFor(chromeLinuxArchive + signatureSuffix); n != 1 {
		t.Errorf("signature fetched %d times, want 1", n)
	}

	res, err = m.SetupWithResult(ctx, signed)
	if err != nil {
		t.Fatalf("repeated signed Setup failed: %v", err)
	}
	if !res.CacheHit {
		t.Error("signature verified entry should be reused")
	}
	if n := vendor.hitsFor(chromeLinuxArchive); n != 2 {
		t.Errorf("archive downloaded %d times, want 2", n)
	}
}

func TestSetup_VersionSpellingsShareEntry(t *testing.T) {
	tests := []struct {
		name     string
		req      func() Request
		spelling []string
		archive  string
		wantDir  string
	}{
		{
			name:     "firefox",
			req:      Firefox,
			spelling: []string{"0.33.0", "v0.33.0"},
			archive:  "/download/v0.33.0/geckodriver-v0.33.0-linux64.tar.gz",
			wantDir:  filepath.Join("firefox", "0.33.0", "linux64"),
		},
		{
			name:     "opera",
			req:      Opera,
			spelling: []string{"v.114.0.5735.110", "114.0.5735.110", "v114.0.5735.110"},
			archive:  "/download/v.114.0.5735.110/operadriver_linux64.zip",
			wantDir:  filepath.Join("opera", "114.0.5735.110", "linux64"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor := newFakeVendor(t)
			if strings.HasSuffix(tt.archive, ".tar.gz") {
				vendor.serve(tt.archive, tarGzBytes(t, map[string]string{"geckodriver": "bin"}))
			} else {
				vendor.serve(tt.archive, zipBytes(t, map[string]string{"operadriver_linux64/operadriver": "bin"}))
			}
			m, _ := newTestManager(t, vendor, linux64)

			var first string
			for _, v := range tt.spelling {
				info, err := m.Setup(context.Background(), tt.req().Version(v))
				if err != nil {
					t.Fatalf("Setup(%s) failed: %v", v, err)
				}
				if first == "" {
					first = info.Path
				} else if info.Path != first {
					t.Errorf("Setup(%s) path = %s, want %s", v, info.Path, first)
				}
			}
			if !strings.Contains(first, tt.wantDir) {
				t.Errorf("path %s is not under %s", first, tt.wantDir)
			}
			if n := vendor.hitsFor(tt.archive); n != 1 {
				t.Errorf("archive downloaded %d times, want 1", n)
			}
			assertEntries(t, m, 1)
		})
	}
}

func TestSetup_ClearBinaryCacheLeavesOtherFamilies(t *testing.T) {
	const geckoArchive = "/download/v0.33.0/geckodriver-v0.33.0-linux64.tar.gz"
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	vendor.serve(geckoArchive, tarGzBytes(t, map[string]string{"geckodriver": "geckodriver-bin"}))
	m, reg := newTestManager(t, vendor, linux64)
	ctx := context.Background()

	if _, err := m.Setup(ctx, Chrome().Version(chromeVersion)); err != nil {
		t.Fatalf("chrome Setup failed: %v", err)
	}
	gecko, err := m.Setup(ctx, Firefox().Version("0.33.0"))
	if err != nil {
		t.Fatalf("firefox Setup failed: %v", err)
	}

	if _, err := m.Setup(ctx, Chrome().Version(chromeVersion).ClearBinaryCache()); err != nil {
		t.Fatalf("chrome Setup with clear failed: %v", err)
	}

	if n := vendor.hitsFor(chromeLinuxArchive); n != 2 {
		t.Errorf("chrome archive downloaded %d times, want 2", n)
	}
	if n := vendor.hitsFor(geckoArchive); n != 1 {
		t.Errorf("gecko archive downloaded %d times, want 1", n)
	}
	if content, err := os.ReadFile(gecko.Path); err != nil || string(content) != "geckodriver-bin" {
		t.Errorf("gecko driver = %q, %v; want it untouched", content, err)
	}
	if got, _ := reg.Get("webdriver.gecko.driver"); got != gecko.Path {
		t.Errorf("gecko property = %q, want %q", got, gecko.Path)
	}

	res, err := m.SetupWithResult(ctx, Firefox().Version("0.33.0"))
	if err != nil {
		t.Fatalf("firefox Setup after clear failed: %v", err)
	}
	if !res.CacheHit {
		t.Error("firefox entry was not served from cache after clearing chrome")
	}
}

func TestSetup_StagingLeavesNoResidue(t *testing.T) {
	vendor := newFakeVendor(t)
	serveChrome(t, vendor)
	m, _ := newTestManager(t, vendor, linux64)

	info, err := m.Setup(context.Background(), Chrome().Version(chromeVersion))
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	versionDir := filepath.Dir(filepath.Dir(info.Path))
	entries, err := os.ReadDir(versionDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "linux64" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("version dir holds %v, want only linux64", names)
	}

	store, err := m.Store("")
	if err != nil {
		t.Fatal(err)
	}
	leftovers, err := os.ReadDir(store.TempDir())
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp dir holds %d leftovers, want none", len(leftovers))
	}
}
