package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
)

// Validate checks the semantic constraints of every setting.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(c.CacheDir) == "" {
		return newFieldError("CacheDir", "must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return newFieldError("HTTPTimeout", "must be greater than 0")
	}
	if c.Proxy != "" {
		if err := ValidateProxy(c.Proxy); err != nil {
			return newFieldError("Proxy", err.Error())
		}
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return newFieldError("LogLevel", "must be one of trace, debug, info, warn, error")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return newFieldError("LogFormat", "must be text or json")
	}
	if c.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "must not be negative")
	}
	if c.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "must not be negative")
	}

	usesObjects := false
	for name, base := range c.Mirrors {
		field := "Mirrors." + name
		if _, err := binary.ParseFamily(name); err != nil {
			return newFieldError(field, "unknown driver family")
		}
		if base == "" {
			continue
		}
		u, err := url.Parse(base)
		if err != nil || u.Host == "" {
			return newFieldError(field, "must be an absolute URL")
		}
		switch u.Scheme {
		case "http", "https":
		case "s3":
			usesObjects = true
		default:
			return newFieldError(field, "scheme must be http, https or s3")
		}
	}

	objects := c.Objects()
	if objects.Enabled() {
		if err := objects.Validate(); err != nil {
			return newFieldError("ObjectStore", err.Error())
		}
	} else if usesObjects {
		return newFieldError("ObjectStore.Endpoint", "required by s3:// mirrors")
	}

	return nil
}

// ValidateProxy checks that proxyURL is an http, https or socks5 URL.
func ValidateProxy(proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
		return nil
	default:
		return errors.New("scheme must be http, https or socks5")
	}
}
