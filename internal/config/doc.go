// Package config provides layered configuration for txt.
//
// Settings are read from three layers, later layers overriding earlier ones:
//
//  1. built-in defaults
//  2. an optional file, TOML (.toml) or YAML (.yaml, .yml)
//  3. environment variables prefixed with TXT_
//
// Values set with Config.Set sit above all three.
//
// # Paths
//
// Settings are addressed by dotted paths such as "linebreak.fallback".
// Environment variables map onto paths by section and camel-cased name:
// TXT_LINEBREAK_DETECT_BYTES sets linebreak.detectBytes.
//
// # Typed Access
//
// GetString, GetInt, GetBool and GetDuration return typed values or a
// *TypeError. The section accessors (LineBreak, Edit, History, Backup, Log,
// Watch) never fail: a malformed value falls back to its default and the
// problem is recorded in ConfigErrors.
//
// Example file:
//
//	[linebreak]
//	fallback = "LINUX"
//	detectBytes = 65536
//
//	[history]
//	maxEntries = 500
//
//	[watch]
//	debounce = "200ms"
package config
