package profile

// Lua schema field names and globals
const (
	luaGlobalKforge    = "kforge"
	luaFieldMeta       = "meta"
	luaFieldConfig     = "config"
	luaFieldModules    = "modules"
	luaFieldName       = "name"
	luaFieldDesc       = "description"
	luaFieldLTO        = "lto"
	luaFieldPreempt    = "preempt"
	luaFieldTickHz     = "tick_hz"
	luaFieldNRCPUs     = "nr_cpus"
	luaFieldHostname   = "hostname"
	luaFieldAutoDetect = "autodetect"
	luaFieldWhitelist  = "whitelist"
	luaFieldExtra      = "extra"
)
