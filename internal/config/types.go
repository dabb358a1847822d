package config

import (
	"time"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
	"github.com/ZebulonRouseFrantzich/wdb/internal/objectstore"
)

// Config holds every wdb setting.
type Config struct {
	CacheDir    string            `mapstructure:"CacheDir"`
	Proxy       string            `mapstructure:"Proxy"`
	HTTPTimeout time.Duration     `mapstructure:"HTTPTimeout"`
	VersionTTL  time.Duration     `mapstructure:"VersionTTL"`
	UserAgent   string            `mapstructure:"UserAgent"`
	Mirrors     map[string]string `mapstructure:"Mirrors"`

	LogLevel      string `mapstructure:"LogLevel"`
	LogFormat     string `mapstructure:"LogFormat"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	ObjectStore ObjectStoreConfig `mapstructure:"ObjectStore"`
}

// ObjectStoreConfig describes the S3 compatible store behind s3:// mirrors.
type ObjectStoreConfig struct {
	Endpoint  string `mapstructure:"Endpoint"`
	AccessKey string `mapstructure:"AccessKey"`
	SecretKey string `mapstructure:"SecretKey"`
	Region    string `mapstructure:"Region"`
	UseSSL    bool   `mapstructure:"UseSSL"`
}

// Logging returns the logger options.
func (c *Config) Logging() logging.Options {
	return logging.Options{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		FilePath:   c.LogFilePath,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		Compress:   c.LogCompress,
	}
}

// Objects returns the object store configuration.
func (c *Config) Objects() objectstore.Config {
	return objectstore.Config{
		Endpoint:  c.ObjectStore.Endpoint,
		AccessKey: c.ObjectStore.AccessKey,
		SecretKey: c.ObjectStore.SecretKey,
		Region:    c.ObjectStore.Region,
		UseSSL:    c.ObjectStore.UseSSL,
	}
}

// MirrorTable returns the per-family mirror base URLs. Keys were checked
// by Validate.
func (c *Config) MirrorTable() binary.Mirrors {
	mirrors := make(binary.Mirrors, len(c.Mirrors))
	for name, base := range c.Mirrors {
		if base == "" {
			continue
		}
		if f, err := binary.ParseFamily(name); err == nil {
			mirrors[f] = base
		}
	}
	return mirrors
}
