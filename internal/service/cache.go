package service

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/cache"
	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// CacheService inspects and prunes driver caches.
type CacheService struct {
	manager DriverManager
	logger  logrus.FieldLogger
}

// NewCacheService creates a new cache service.
func NewCacheService(manager DriverManager, logger logrus.FieldLogger) *CacheService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CacheService{manager: manager, logger: logger}
}

// CacheListRequest contains parameters for listing a cache.
type CacheListRequest struct {
	// Root is the cache root; empty uses the configured one.
	Root string
	// Family restricts the listing when set.
	Family binary.Family
}

// CacheListResult contains the valid entries of a cache.
type CacheListResult struct {
	Root    string
	Entries []cache.Entry
}

// List returns the recorded entries under the cache root, sorted by family,
// platform and version.
func (s *CacheService) List(ctx context.Context, req CacheListRequest) (*CacheListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store, err := s.manager.Store(req.Root)
	if err != nil {
		return nil, err
	}
	entries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		if req.Family == "" || e.Key.Family == string(req.Family) {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		a, b := filtered[i].Key, filtered[j].Key
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return binary.CompareVersions(a.Version, b.Version) < 0
	})

	return &CacheListResult{Root: store.Root(), Entries: filtered}, nil
}

// CacheClearRequest identifies one cached driver.
type CacheClearRequest struct {
	Root    string
	Family  binary.Family
	Version string
	// Arch selects the artifact width; zero uses the detected platform.
	Arch platform.Bits
}

// Clear removes the cached driver. Clearing an absent entry is not an
// error.
func (s *CacheService) Clear(ctx context.Context, req CacheClearRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.manager.Clear(ctx, req.Root, req.Family, req.Version, req.Arch); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		logging.FieldFamily:  string(req.Family),
		logging.FieldVersion: req.Version,
	}).Info("cache entry cleared")
	return nil
}
