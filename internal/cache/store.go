// Package cache stores extracted driver executables on disk under a
// deterministic layout:
//
//	<root>/webdriver/<family>/<version>/<platform>/<executable>
//	<root>/webdriver/<family>/<version>/<platform>/entry.yaml
//
// Every entry records the size and xxhash64 fingerprint of the executable
// so that truncated or replaced files are detected and treated as misses.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/wdb/internal/lockfile"
	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
)

const (
	layoutDir = "webdriver"
	entryFile = "entry.yaml"
	locksDir  = ".locks"
	tmpDir    = ".tmp"

	// staleTempAge is how old a leftover download or staging directory
	// must be before it is swept.
	staleTempAge = 24 * time.Hour
)

var (
	// ErrNotFound is returned by Lookup on a miss.
	ErrNotFound = errors.New("cache entry not found")

	// ErrCorrupted marks an entry whose metadata or executable no longer
	// matches. It is logged and turned into a miss, never returned.
	ErrCorrupted = zerr.New("cache entry corrupted")
)

// Entry is the persisted record of a cached executable.
type Entry struct {
	Key        Key       `yaml:"key"`
	Path       string    `yaml:"path"`
	Size       int64     `yaml:"size"`
	Hash       string    `yaml:"xxhash"`
	CreatedAt  time.Time `yaml:"created_at"`
	Provenance `yaml:",inline"`
}

// Provenance records the downloaded artifact an entry was extracted from
// and which checks it passed.
type Provenance struct {
	// ArtifactSHA256 is the hex SHA256 of the downloaded artifact.
	ArtifactSHA256 string `yaml:"artifact_sha256,omitempty"`
	// Signed is set when a detached signature was verified.
	Signed bool `yaml:"signed,omitempty"`
}

// Options configures a Store.
type Options struct {
	Logger logrus.FieldLogger
	// LockPoll is the retry interval for cross-process key locks.
	LockPoll time.Duration
	// VersionTTL bounds resolved-version records. Zero uses
	// DefaultVersionTTL; negative disables the version cache.
	VersionTTL time.Duration
}

// Store is a filesystem backed cache of driver executables.
type Store struct {
	root     string
	logger   logrus.FieldLogger
	lockPoll time.Duration
	versions *Versions

	mu    sync.Mutex
	locks map[string]*entryLock
}

// entryLock is a refcounted per-key lock. The channel is a one slot
// semaphore so that waiting can be cancelled.
type entryLock struct {
	sem  chan struct{}
	refs int
}

// NewStore creates a store rooted at root.
func NewStore(root string, opts Options) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("cache root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, layoutDir), 0755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Store{
		root:     abs,
		logger:   logger,
		lockPoll: opts.LockPoll,
		locks:    make(map[string]*entryLock),
	}
	s.versions = newVersions(filepath.Join(abs, layoutDir), opts.VersionTTL, logger)
	s.sweepTemp(time.Now())
	return s, nil
}

// sweepTemp removes downloads and staging directories left in TempDir by
// interrupted installs.
func (s *Store) sweepTemp(now time.Time) {
	entries, err := os.ReadDir(s.TempDir())
	if err != nil {
		return
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < staleTempAge {
			continue
		}
		path := filepath.Join(s.TempDir(), e.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("failed to remove stale temp file")
			continue
		}
		s.logger.WithField("path", path).Debug("removed stale temp file")
	}
}

// Root returns the absolute cache root.
func (s *Store) Root() string {
	return s.root
}

// Versions returns the resolved-version cache kept alongside the entries.
func (s *Store) Versions() *Versions {
	return s.versions
}

// Dir returns the directory holding the entry for key.
func (s *Store) Dir(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.root, layoutDir, key.Family, key.Version, key.Platform), nil
}

// TempDir returns the scratch directory used for downloads. It lives on
// the same filesystem as the entries so renames are atomic.
func (s *Store) TempDir() string {
	return filepath.Join(s.root, layoutDir, tmpDir)
}

// Lock acquires the key-scoped lock, first in process and then across
// processes. Different keys never wait on each other. The returned
// function releases the lock.
func (s *Store) Lock(ctx context.Context, key Key) (func(), error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	name := key.String()

	s.mu.Lock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &entryLock{sem: make(chan struct{}, 1)}
		s.locks[name] = lock
	}
	lock.refs++
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, name)
		}
		s.mu.Unlock()
	}

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		release()
		return nil, ctx.Err()
	}

	fileLock, err := lockfile.Acquire(ctx, filepath.Join(s.root, layoutDir, locksDir), key.lockName(), s.lockPoll)
	if err != nil {
		<-lock.sem
		release()
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := fileLock.Release(); err != nil {
				s.logger.WithError(err).WithField("key", name).Warn("failed to release cache lock file")
			}
			<-lock.sem
			release()
		})
	}, nil
}

// Lookup returns the entry for key. A missing, partial or corrupted entry
// is a miss; corrupted entries are logged and removed.
func (s *Store) Lookup(ctx context.Context, key Key) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.Dir(key)
	if err != nil {
		return nil, err
	}

	entry, err := readEntry(filepath.Join(dir, entryFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, statErr := os.Stat(dir); statErr == nil {
				s.heal(key, dir, "entry metadata missing")
			}
			return nil, ErrNotFound
		}
		s.heal(key, dir, err.Error())
		return nil, ErrNotFound
	}

	if reason := s.check(key, dir, entry); reason != "" {
		s.heal(key, dir, reason)
		return nil, ErrNotFound
	}
	return entry, nil
}

// check returns why entry is unusable, or "" when it is valid.
func (s *Store) check(key Key, dir string, entry *Entry) string {
	if entry.Key != key {
		return fmt.Sprintf("entry recorded for %s", entry.Key)
	}
	if !within(dir, entry.Path) {
		return "executable outside entry directory"
	}

	info, err := os.Stat(entry.Path)
	if err != nil {
		return "executable missing"
	}
	if !info.Mode().IsRegular() {
		return "executable is not a regular file"
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0111 == 0 {
		return "executable bit not set"
	}
	if info.Size() != entry.Size {
		return fmt.Sprintf("size %d, recorded %d", info.Size(), entry.Size)
	}

	hash, err := fingerprint(entry.Path)
	if err != nil {
		return err.Error()
	}
	if hash != entry.Hash {
		return "fingerprint mismatch"
	}
	return ""
}

func (s *Store) heal(key Key, dir, reason string) {
	err := zerr.With(zerr.Wrap(ErrCorrupted, reason), "key", key.String())
	s.logger.WithError(err).WithField("dir", dir).Warn("discarding corrupted cache entry")
	if rmErr := os.RemoveAll(dir); rmErr != nil {
		s.logger.WithError(rmErr).WithField("dir", dir).Warn("failed to remove corrupted cache entry")
	}
}

// Insert records the executable at path, which must live inside Dir(key),
// together with the provenance of its artifact. The entry metadata is
// written atomically; the entry only becomes visible once it is complete.
func (s *Store) Insert(ctx context.Context, key Key, path string, prov Provenance) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.Dir(key)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}
	if !within(dir, abs) {
		return nil, fmt.Errorf("executable %s is outside %s", abs, dir)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat executable: %w", err)
	}
	hash, err := fingerprint(abs)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Key:        key,
		Path:       abs,
		Size:       info.Size(),
		Hash:       hash,
		CreatedAt:  time.Now().UTC(),
		Provenance: prov,
	}
	if err := writeEntry(dir, entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"key":  key.String(),
		"path": abs,
		"size": entry.Size,
	}).Debug("cache entry stored")
	return entry, nil
}

// Invalidate removes the entry for key and nothing else.
func (s *Store) Invalidate(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.Dir(key)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	s.logger.WithField("key", key.String()).Debug("cache entry invalidated")
	return nil
}

// List returns every readable entry ordered by key. Entries are not
// validated; unreadable metadata is skipped.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	pattern := filepath.Join(s.root, layoutDir, "*", "*", "*", entryFile)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := readEntry(m)
		if err != nil {
			s.logger.WithError(err).WithField("file", m).Debug("skipping unreadable cache entry")
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
	return entries, nil
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parse %s: %w", entryFile, err)
	}
	if entry.Path == "" || entry.Hash == "" {
		return nil, fmt.Errorf("incomplete %s", entryFile)
	}
	return &entry, nil
}

func writeEntry(dir string, entry *Entry) error {
	data, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entryFile, err)
	}
	return writeAtomic(filepath.Join(dir, entryFile), data)
}

// writeAtomic writes data to a temp file next to path and renames it.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// fingerprint returns the xxhash64 of the file as 16 hex digits.
func fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open executable: %w", err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash executable: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
