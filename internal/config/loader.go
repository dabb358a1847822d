package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/cache"
)

// envBindings maps setting keys onto environment variables.
var envBindings = map[string]string{
	"CacheDir":              "WDB_CACHE_DIR",
	"Proxy":                 "WDB_PROXY",
	"HTTPTimeout":           "WDB_HTTP_TIMEOUT",
	"VersionTTL":            "WDB_VERSION_TTL",
	"UserAgent":             "WDB_USER_AGENT",
	"LogLevel":              "WDB_LOG_LEVEL",
	"LogFormat":             "WDB_LOG_FORMAT",
	"LogFilePath":           "WDB_LOG_FILE",
	"LogMaxSize":            "WDB_LOG_MAX_SIZE",
	"LogMaxBackups":         "WDB_LOG_MAX_BACKUPS",
	"LogCompress":           "WDB_LOG_COMPRESS",
	"ObjectStore.Endpoint":  "WDB_OBJECTSTORE_ENDPOINT",
	"ObjectStore.AccessKey": "WDB_OBJECTSTORE_ACCESS_KEY",
	"ObjectStore.SecretKey": "WDB_OBJECTSTORE_SECRET_KEY",
	"ObjectStore.Region":    "WDB_OBJECTSTORE_REGION",
	"ObjectStore.UseSSL":    "WDB_OBJECTSTORE_USE_SSL",
}

// Load reads settings. An empty path skips the config file; a non-empty
// path must exist. The format follows the file extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absCache, err := filepath.Abs(expandHome(cfg.CacheDir))
	if err != nil {
		return nil, fmt.Errorf("resolve cache directory: %w", err)
	}
	cfg.CacheDir = absCache

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CacheDir", DefaultCacheDir())
	v.SetDefault("Proxy", "")
	v.SetDefault("HTTPTimeout", binary.DefaultTimeout.String())
	v.SetDefault("VersionTTL", cache.DefaultVersionTTL.String())
	v.SetDefault("UserAgent", binary.DefaultUserAgent)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("ObjectStore.Endpoint", "")
	v.SetDefault("ObjectStore.AccessKey", "")
	v.SetDefault("ObjectStore.SecretKey", "")
	v.SetDefault("ObjectStore.Region", "us-east-1")
	v.SetDefault("ObjectStore.UseSSL", true)
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	for _, f := range binary.Families() {
		env := "WDB_MIRROR_" + strings.ToUpper(string(f))
		if err := v.BindEnv("Mirrors."+string(f), env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

// DefaultCacheDir is the per-user cache root.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "wdb")
	}
	return filepath.Join(os.TempDir(), "wdb")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// durationDecodeHook accepts Go duration strings and plain seconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(time.Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return time.Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return parsed, nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return time.Duration(seconds * float64(time.Second)), nil
			}
			return nil, fmt.Errorf("invalid duration %q", v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case time.Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("unsupported duration type %T", v)
		}
	}
}
