package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	goos       string
	goarch     string
	kernelArch func() (string, error)
}

// NewDetector creates a new platform detector for the running host.
func NewDetector() Detector {
	return &RealDetector{
		goos:       runtime.GOOS,
		goarch:     runtime.GOARCH,
		kernelArch: host.KernelArch,
	}
}

// Detect performs platform detection and returns platform information.
//
// The word width comes from GOARCH. When GOARCH is not one we know, the kernel
// architecture reported by gopsutil is tried, and when that fails too the
// width defaults to 64 bits. Detection therefore only fails when ctx is done.
// On Linux the distribution is filled in best-effort.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", err)
	}

	info := &Info{
		OS:      d.goos,
		ArchRaw: d.goarch,
		Bits:    Bits64,
	}

	if name, bits, ok := normalizeArch(d.goarch); ok {
		info.Arch = name
		info.Bits = bits
	} else if d.kernelArch != nil {
		if raw, err := d.kernelArch(); err == nil {
			if name, bits, ok := normalizeArch(raw); ok {
				info.Arch = name
				info.ArchRaw = raw
				info.Bits = bits
			}
		}
	}
	if info.Arch == "" {
		info.Arch = d.goarch
	}

	if d.goos == "linux" {
		platform, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}

		platform = normalizePlatform(platform)
		if platform != "" {
			info.Platform = platform
			info.Family = mapFamily(family)
			info.Version = normalizePlatform(version)
		}
	}

	return info, nil
}

// cachedDetector memoises the first successful detection.
type cachedDetector struct {
	inner Detector

	mu   sync.Mutex
	info *Info
}

// Cached wraps a detector so the platform is computed once per process.
// Callers receive copies and cannot alter the cached fact.
func Cached(inner Detector) Detector {
	return &cachedDetector{inner: inner}
}

func (c *cachedDetector) Detect(ctx context.Context) (*Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.info == nil {
		info, err := c.inner.Detect(ctx)
		if err != nil {
			return nil, err
		}
		c.info = info
	}

	info := *c.info
	return &info, nil
}

// Static is a Detector that always reports the same platform. It is used when
// callers pin the platform explicitly and by tests.
type Static struct {
	Info Info
}

// Detect returns a copy of the configured info.
func (s Static) Detect(ctx context.Context) (*Info, error) {
	info := s.Info
	return &info, nil
}

// StaticKey builds a Static detector from an artifact key.
func StaticKey(key Key) Static {
	info := Info{Bits: key.Bits}
	switch key.OS {
	case OsWin:
		info.OS = "windows"
	case OsMac:
		info.OS = "darwin"
	default:
		info.OS = "linux"
	}
	if key.Bits == Bits32 {
		info.Arch = "386"
	} else {
		info.Arch = "amd64"
	}
	info.ArchRaw = info.Arch
	return Static{Info: info}
}
