package logging

import "github.com/sirupsen/logrus"

// Field names shared by every component.
const (
	FieldFamily   = "family"
	FieldVersion  = "version"
	FieldPlatform = "platform"
	FieldCacheHit = "cache_hit"
	FieldURL      = "url"
)

// KeyFields identifies a driver cache key in log entries.
func KeyFields(family, version, platform string) logrus.Fields {
	return logrus.Fields{
		FieldFamily:   family,
		FieldVersion:  version,
		FieldPlatform: platform,
	}
}

// SetupFields describes a completed setup.
func SetupFields(family, version, platform string, cacheHit bool) logrus.Fields {
	f := KeyFields(family, version, platform)
	f[FieldCacheHit] = cacheHit
	return f
}
