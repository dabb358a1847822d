// Package service implements the driver operations exposed by the wdb
// command: single setups, manifest syncs and cache maintenance.
package service

import (
	"context"
	"errors"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/cache"
	"github.com/ZebulonRouseFrantzich/wdb/internal/manifest"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// ErrNoDrivers is returned when a manifest declares no drivers.
var ErrNoDrivers = errors.New("manifest declares no drivers")

// DriverManager is the part of *binary.Manager the services depend on.
type DriverManager interface {
	SetupWithResult(ctx context.Context, req binary.Request) (*binary.SetupResult, error)
	Clear(ctx context.Context, root string, family binary.Family, version string, bits platform.Bits) error
	Store(root string) (*cache.Store, error)
	Platform(ctx context.Context) (*platform.Info, error)
}

// ManifestParser parses driver manifests.
type ManifestParser interface {
	ParseString(ctx context.Context, lua string) (*manifest.Manifest, error)
}

var (
	_ DriverManager  = (*binary.Manager)(nil)
	_ ManifestParser = (*manifest.Parser)(nil)
)
