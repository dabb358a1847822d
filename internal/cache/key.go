package cache

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

// ErrInvalidKey is returned for keys that cannot be mapped onto a directory.
var ErrInvalidKey = zerr.New("invalid cache key")

// Key identifies one cached driver executable.
type Key struct {
	Family   string `yaml:"family"`
	Version  string `yaml:"version"`
	Platform string `yaml:"platform"`
}

// String returns "family/version/platform".
func (k Key) String() string {
	return k.Family + "/" + k.Version + "/" + k.Platform
}

// Validate checks that every component is a single safe path segment.
func (k Key) Validate() error {
	for _, part := range []struct{ name, value string }{
		{"family", k.Family},
		{"version", k.Version},
		{"platform", k.Platform},
	} {
		if err := validSegment(part.value); err != nil {
			return zerr.With(zerr.Wrap(ErrInvalidKey, err.Error()), part.name, part.value)
		}
	}
	return nil
}

func (k Key) lockName() string {
	return k.Family + "_" + k.Version + "_" + k.Platform + ".lock"
}

func validSegment(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("empty component")
	case s == "." || s == "..":
		return fmt.Errorf("relative component %q", s)
	case strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, filepath.Separator):
		return fmt.Errorf("component %q contains a path separator", s)
	case strings.HasPrefix(s, "."):
		return fmt.Errorf("component %q is hidden", s)
	}
	return nil
}
