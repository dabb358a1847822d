package binary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ZebulonRouseFrantzich/wdb/internal/cache"
	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
	"github.com/ZebulonRouseFrantzich/wdb/internal/registry"
)

// signatureSuffix is appended to an artifact URL to find its detached
// signature when a keyring is supplied.
const signatureSuffix = ".asc"

// Manager orchestrates version resolution, download, verification,
// extraction, caching and publication of driver executables.
type Manager struct {
	cacheDir   string
	detector   platform.Detector
	registry   registry.Store
	mirrors    Mirrors
	proxy      string
	versionTTL time.Duration
	lockPoll   time.Duration
	logger     logrus.FieldLogger

	downloader *Downloader
	resolver   *VersionResolver
	extractor  *Extractor
	verifier   *Verifier

	mu     sync.Mutex
	stores map[string]*cache.Store
}

// Config holds configuration for the driver manager
type Config struct {
	// CacheDir is the cache root used when a request sets no target path.
	CacheDir string
	// Detector defaults to a memoised runtime detector.
	Detector platform.Detector
	// Registry receives published properties; defaults to an in-memory store.
	Registry registry.Store
	// Probe reports installed browser versions; defaults to ExecProbe.
	Probe BrowserProbe
	// Mirrors overrides vendor base URLs per family.
	Mirrors Mirrors
	// Objects serves s3:// mirrors.
	Objects ObjectFetcher
	// Proxy is used by requests that do not set their own.
	Proxy string

	HTTPTimeout time.Duration
	UserAgent   string
	Transport   *http.Transport
	// VersionTTL bounds the resolved-version cache; negative disables it.
	VersionTTL time.Duration
	// LockPoll is the retry interval for cross-process cache locks.
	LockPoll time.Duration

	Logger logrus.FieldLogger
}

// NewManager creates a new driver manager
func NewManager(config Config) (*Manager, error) {
	if config.CacheDir == "" {
		return nil, fmt.Errorf("CacheDir is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	detector := config.Detector
	if detector == nil {
		detector = platform.Cached(platform.NewDetector())
	}
	reg := config.Registry
	if reg == nil {
		reg = registry.NewMemory()
	}
	probe := config.Probe
	if probe == nil {
		probe = NewExecProbe()
	}

	downloader := NewDownloader(DownloaderOptions{
		Timeout:   config.HTTPTimeout,
		UserAgent: config.UserAgent,
		Transport: config.Transport,
		Objects:   config.Objects,
		Logger:    logger,
	})

	return &Manager{
		cacheDir:   config.CacheDir,
		detector:   detector,
		registry:   reg,
		mirrors:    config.Mirrors,
		proxy:      config.Proxy,
		versionTTL: config.VersionTTL,
		lockPoll:   config.LockPoll,
		logger:     logger,
		downloader: downloader,
		resolver:   NewVersionResolver(downloader, probe, logger),
		extractor:  NewExtractor(),
		verifier:   NewVerifier(),
		stores:     make(map[string]*cache.Store),
	}, nil
}

// Registry returns the store properties are published into.
func (m *Manager) Registry() registry.Store {
	return m.registry
}

// Store returns the cache rooted at root, or at the manager's cache
// directory when root is empty. Stores are shared per root so that key
// locks are shared too.
func (m *Manager) Store(root string) (*cache.Store, error) {
	if root == "" {
		root = m.cacheDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[abs]; ok {
		return s, nil
	}
	s, err := cache.NewStore(abs, cache.Options{
		Logger:     m.logger,
		LockPoll:   m.lockPoll,
		VersionTTL: m.versionTTL,
	})
	if err != nil {
		return nil, err
	}
	m.stores[abs] = s
	return s, nil
}

// Platform returns the detected platform.
func (m *Manager) Platform(ctx context.Context) (*platform.Info, error) {
	return m.detector.Detect(ctx)
}

// Setup makes the driver described by req available and publishes its
// path under the family's property.
func (m *Manager) Setup(ctx context.Context, req Request) (*BinaryInfo, error) {
	result, err := m.SetupWithResult(ctx, req)
	if err != nil {
		return nil, err
	}
	return &result.Info, nil
}

// SetupWithResult is Setup with details about how the driver was obtained.
func (m *Manager) SetupWithResult(ctx context.Context, req Request) (*SetupResult, error) {
	startTime := time.Now()
	if req.proxy == "" {
		req.proxy = m.proxy
	}

	spec, err := lookupFamily(req.family)
	if err != nil {
		return nil, err
	}

	key, err := m.platformKey(ctx, spec, req)
	if err != nil {
		return nil, err
	}
	if !spec.supports(key) {
		return nil, typed(ErrUnsupportedPlatform, nil, "family", string(spec.family), "platform", key.String())
	}

	store, err := m.Store(req.targetPath)
	if err != nil {
		return nil, err
	}

	resolved, err := m.resolver.Resolve(ctx, ResolveQuery{
		Family:    spec.family,
		Explicit:  req.version,
		AutoCheck: !req.noAutoCheck,
		Platform:  key,
		Proxy:     req.proxy,
		Mirrors:   m.mirrors,
		Memo:      store.Versions(),
	})
	if err != nil {
		return nil, err
	}

	resolved.Version = spec.bareVersion(resolved.Version)
	ck := cache.Key{Family: string(spec.family), Version: resolved.Version, Platform: key.String()}
	if err := ck.Validate(); err != nil {
		return nil, typed(ErrVersionResolution, err, "version", resolved.Version)
	}
	log := m.logger.WithFields(logging.KeyFields(ck.Family, ck.Version, ck.Platform))

	path, hit, err := m.obtain(ctx, store, ck, key, req, log)
	if err != nil {
		return nil, err
	}

	if err := m.registry.Set(spec.property, path); err != nil {
		return nil, fmt.Errorf("publish %s: %w", spec.property, err)
	}

	result := &SetupResult{
		Info:       BinaryInfo{Property: spec.property, Path: path},
		Resolved:   resolved,
		Platform:   key,
		CacheHit:   hit,
		Downloaded: !hit,
		Duration:   time.Since(startTime),
	}
	log.WithFields(logrus.Fields{
		logging.FieldCacheHit: hit,
		"source":              resolved.Source.String(),
		"path":                path,
		"duration":            result.Duration.String(),
	}).Info("driver ready")
	return result, nil
}

// platformKey applies the arch override or the family's default key.
func (m *Manager) platformKey(ctx context.Context, spec *familySpec, req Request) (platform.Key, error) {
	info, err := m.detector.Detect(ctx)
	if err != nil {
		return platform.Key{}, fmt.Errorf("detect platform: %w", err)
	}
	key := info.Key()
	switch {
	case req.arch != 0:
		key = key.WithBits(req.arch)
	case spec.defaultKey != nil:
		key = spec.defaultKey(key)
	}
	return key, nil
}

// obtain returns the cached executable for ck, installing it first when
// needed. Everything happens under the key lock.
func (m *Manager) obtain(ctx context.Context, store *cache.Store, ck cache.Key, key platform.Key, req Request, log logrus.FieldLogger) (string, bool, error) {
	unlock, err := store.Lock(ctx, ck)
	if err != nil {
		return "", false, err
	}
	defer unlock()

	if req.clearCache {
		if err := store.Invalidate(ctx, ck); err != nil {
			return "", false, err
		}
		log.Debug("cache entry cleared")
	}

	if !req.strict {
		entry, err := store.Lookup(ctx, ck)
		switch {
		case err == nil:
			reason := unmetChecks(entry, req)
			if reason == "" {
				return entry.Path, true, nil
			}
			log.WithField("reason", reason).Info("cached driver does not satisfy requested verification, downloading again")
		case !errors.Is(err, cache.ErrNotFound):
			return "", false, err
		}
	}

	rel, err := Locate(req.family, ck.Version, key, m.mirrors)
	if err != nil {
		return "", false, err
	}

	entry, err := m.install(ctx, store, ck, rel, req, log)
	if err != nil {
		return "", false, err
	}
	log.WithField(logging.FieldURL, rel.URL).Debug("driver installed")
	return entry.Path, false, nil
}

// unmetChecks returns why a cached entry cannot serve req, or "" when the
// checks req asks for were applied to the artifact it came from.
func unmetChecks(entry *cache.Entry, req Request) string {
	if req.checksum != "" {
		if entry.ArtifactSHA256 == "" {
			return "artifact checksum not recorded"
		}
		if !strings.EqualFold(entry.ArtifactSHA256, normalizeChecksum(req.checksum)) {
			return "artifact checksum differs from pinned checksum"
		}
	}
	if req.keyring != "" && !entry.Signed {
		return "artifact signature never verified"
	}
	return ""
}

// install downloads, verifies and extracts rel into a staging directory
// under the store's temp dir, which is then renamed onto the key
// directory and recorded. Nothing is recorded unless every step succeeded.
func (m *Manager) install(ctx context.Context, store *cache.Store, ck cache.Key, rel Release, req Request, log logrus.FieldLogger) (*cache.Entry, error) {
	archivePath, err := m.downloader.Fetch(ctx, rel.URL, req.proxy, store.TempDir())
	if err != nil {
		return nil, err
	}
	defer os.Remove(archivePath)

	opts := VerifyOptions{Checksum: req.checksum, KeyringPath: req.keyring}
	if req.keyring != "" {
		sigPath, err := m.downloader.Fetch(ctx, rel.URL+signatureSuffix, req.proxy, store.TempDir())
		if err != nil {
			return nil, typed(ErrVerification, err, "url", rel.URL+signatureSuffix)
		}
		defer os.Remove(sigPath)
		opts.SignaturePath = sigPath
	}
	methods, err := m.verifier.Verify(archivePath, opts)
	if err != nil {
		return nil, err
	}
	sum, err := calculateSHA256(archivePath)
	if err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}
	log.WithFields(logrus.Fields{
		"verified":        methods,
		"artifact_sha256": sum,
	}).Debug("artifact checked")

	dir, err := store.Dir(ck)
	if err != nil {
		return nil, err
	}
	staging := filepath.Join(store.TempDir(), "staging-"+uuid.NewString())
	exePath, err := m.extractor.Extract(archivePath, rel, staging)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("create cache entry parent: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("clear cache entry: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("move driver into cache: %w", err)
	}

	return store.Insert(ctx, ck, filepath.Join(dir, filepath.Base(exePath)), cache.Provenance{
		ArtifactSHA256: sum,
		Signed:         slices.Contains(methods, VerificationGPG),
	})
}

// Clear removes the cached driver for family and version on the detected
// platform (or bits when non-zero) under root.
func (m *Manager) Clear(ctx context.Context, root string, family Family, version string, bits platform.Bits) error {
	spec, err := lookupFamily(family)
	if err != nil {
		return err
	}
	key, err := m.platformKey(ctx, spec, Request{family: family, arch: bits})
	if err != nil {
		return err
	}
	store, err := m.Store(root)
	if err != nil {
		return err
	}

	ck := cache.Key{Family: string(family), Version: spec.bareVersion(version), Platform: key.String()}
	unlock, err := store.Lock(ctx, ck)
	if err != nil {
		return err
	}
	defer unlock()
	return store.Invalidate(ctx, ck)
}
