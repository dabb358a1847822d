// Package config loads wdb settings from an optional YAML or TOML file,
// WDB_* environment variables and built-in defaults, in increasing order
// of precedence: defaults, file, environment.
//
// Recognised keys and their environment variables:
//
//	CacheDir              WDB_CACHE_DIR
//	Proxy                 WDB_PROXY
//	HTTPTimeout           WDB_HTTP_TIMEOUT        ("90s", "5m" or seconds)
//	VersionTTL            WDB_VERSION_TTL         (negative disables)
//	UserAgent             WDB_USER_AGENT
//	LogLevel              WDB_LOG_LEVEL
//	LogFormat             WDB_LOG_FORMAT          (text or json)
//	LogFilePath           WDB_LOG_FILE
//	LogMaxSize            WDB_LOG_MAX_SIZE
//	LogMaxBackups         WDB_LOG_MAX_BACKUPS
//	LogCompress           WDB_LOG_COMPRESS
//	Mirrors.<family>      WDB_MIRROR_<FAMILY>
//	ObjectStore.Endpoint  WDB_OBJECTSTORE_ENDPOINT
//	ObjectStore.AccessKey WDB_OBJECTSTORE_ACCESS_KEY
//	ObjectStore.SecretKey WDB_OBJECTSTORE_SECRET_KEY
//	ObjectStore.Region    WDB_OBJECTSTORE_REGION
//	ObjectStore.UseSSL    WDB_OBJECTSTORE_USE_SSL
package config
