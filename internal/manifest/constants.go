package manifest

// Lua schema globals and field names
const (
	luaGlobalDrivers  = "drivers"
	luaGlobalDefaults = "defaults"

	luaFieldFamily   = "family"
	luaFieldVersion  = "version"
	luaFieldArch     = "arch"
	luaFieldTarget   = "target"
	luaFieldProxy    = "proxy"
	luaFieldStrict   = "strict"
	luaFieldAuto     = "auto"
	luaFieldClear    = "clear"
	luaFieldChecksum = "checksum"
	luaFieldKeyring  = "keyring"
)
