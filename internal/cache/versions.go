package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	versionsFile = "versions.yaml"
	// DefaultVersionTTL is how long a resolved version is trusted.
	DefaultVersionTTL = time.Hour
)

// Versions remembers resolved driver versions per family in
// <root>/webdriver/<family>/versions.yaml so that repeated setups do not
// hit the network.
type Versions struct {
	dir    string
	ttl    time.Duration
	logger logrus.FieldLogger
	now    func() time.Time

	mu sync.Mutex
}

type versionRecord struct {
	Version    string    `yaml:"version"`
	ResolvedAt time.Time `yaml:"resolved_at"`
}

type versionDocument struct {
	Versions map[string]versionRecord `yaml:"versions"`
}

func newVersions(dir string, ttl time.Duration, logger logrus.FieldLogger) *Versions {
	if ttl == 0 {
		ttl = DefaultVersionTTL
	}
	return &Versions{
		dir:    dir,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// TTL returns the record lifetime; a negative value means disabled.
func (v *Versions) TTL() time.Duration {
	return v.ttl
}

// Get returns the unexpired version recorded for family and mode.
func (v *Versions) Get(family, mode string) (string, bool) {
	if v.ttl < 0 || validSegment(family) != nil {
		return "", false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	doc, err := v.load(family)
	if err != nil {
		v.logger.WithError(err).WithField("family", family).Debug("ignoring unreadable version cache")
		return "", false
	}
	rec, ok := doc.Versions[mode]
	if !ok || rec.Version == "" {
		return "", false
	}
	if v.now().Sub(rec.ResolvedAt) > v.ttl {
		return "", false
	}
	return rec.Version, true
}

// Put records version for family and mode.
func (v *Versions) Put(family, mode, version string) error {
	if v.ttl < 0 {
		return nil
	}
	if err := validSegment(family); err != nil {
		return fmt.Errorf("version cache: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	doc, err := v.load(family)
	if err != nil {
		// An unreadable file is replaced.
		doc = &versionDocument{}
	}
	if doc.Versions == nil {
		doc.Versions = make(map[string]versionRecord)
	}

	now := v.now()
	for mode, rec := range doc.Versions {
		if now.Sub(rec.ResolvedAt) > v.ttl {
			delete(doc.Versions, mode)
		}
	}
	doc.Versions[mode] = versionRecord{Version: version, ResolvedAt: now.UTC()}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", versionsFile, err)
	}
	return writeAtomic(v.path(family), data)
}

func (v *Versions) path(family string) string {
	return filepath.Join(v.dir, family, versionsFile)
}

func (v *Versions) load(family string) (*versionDocument, error) {
	data, err := os.ReadFile(v.path(family))
	if errors.Is(err, os.ErrNotExist) {
		return &versionDocument{}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc versionDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", versionsFile, err)
	}
	return &doc, nil
}
