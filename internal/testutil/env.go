// Package testutil provides utilities for testing wdb in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// settingsEnv lists every environment variable wdb reads. SetupTestEnv
// clears them so the developer's own settings never leak into tests.
var settingsEnv = []string{
	"WDB_PROXY",
	"WDB_HTTP_TIMEOUT",
	"WDB_VERSION_TTL",
	"WDB_USER_AGENT",
	"WDB_LOG_LEVEL",
	"WDB_LOG_FORMAT",
	"WDB_LOG_FILE",
	"WDB_LOG_MAX_SIZE",
	"WDB_LOG_MAX_BACKUPS",
	"WDB_LOG_COMPRESS",
	"WDB_MIRROR_CHROME",
	"WDB_MIRROR_FIREFOX",
	"WDB_MIRROR_EDGE",
	"WDB_MIRROR_IE",
	"WDB_MIRROR_OPERA",
	"WDB_MIRROR_GRID",
	"WDB_OBJECTSTORE_ENDPOINT",
	"WDB_OBJECTSTORE_ACCESS_KEY",
	"WDB_OBJECTSTORE_SECRET_KEY",
	"WDB_OBJECTSTORE_REGION",
	"WDB_OBJECTSTORE_USE_SSL",
}

// SetupTestEnv points the wdb cache at a fresh temp directory and clears
// every other WDB_* setting. It returns the cache directory.
//
// The cleanup function is automatically handled by t.TempDir() and
// t.Setenv(), so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")

	t.Setenv("WDB_CACHE_DIR", cacheDir)
	for _, name := range settingsEnv {
		t.Setenv(name, "")
	}

	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		t.Fatalf("failed to create test directory %s: %v", cacheDir, err)
	}
	return cacheDir
}
