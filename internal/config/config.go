// Package config is the configuration gate: it decides whether a sync
// engine should be constructed at all, and if so, with which backend and
// interval.
package config

import (
	"strconv"
)

// Settings is a flat string map, the same shape the teacher's config table
// and providers table store values in (key -> string value), decoded by an
// external loader this package does not concern itself with.
type Settings map[string]string

// GetBool coerces a settings value to bool the way Engine.GetConfigBool
// does: "true" or "1" is true, everything else (including absent) is false.
func (s Settings) GetBool(key string) bool {
	v := s[key]
	return v == "true" || v == "1"
}

// GetInt coerces a settings value to int; an absent or unparsable value
// yields 0, mirroring Engine.GetConfigInt's best-effort Sscanf.
func (s Settings) GetInt(key string) int {
	n, err := strconv.Atoi(s[key])
	if err != nil {
		return 0
	}
	return n
}

// GetIntDefault is GetInt but substitutes def when the value is absent,
// unparsable, or not positive.
func (s Settings) GetIntDefault(key string, def int) int {
	n := s.GetInt(key)
	if n <= 0 {
		return def
	}
	return n
}

// Get returns the raw string value, or "" if absent.
func (s Settings) Get(key string) string {
	return s[key]
}

// GetStringDefault returns the raw string value, or def if absent/empty.
func (s Settings) GetStringDefault(key, def string) string {
	if v := s[key]; v != "" {
		return v
	}
	return def
}

// Recognized configuration keys.
const (
	KeyRemoteEnabled   = "sync.remoteEnabled"
	KeyProvider        = "sync.provider"
	KeyEndpoint        = "sync.endpoint"
	KeyDatabase        = "sync.database"
	KeyContainer       = "sync.container"
	KeySyncIntervalMs  = "sync.intervalMs"
	KeyAccountKey      = "sync.credentials.accountKey"
	defaultDatabase    = "claude-mem"
	defaultContainer   = "memory-records"
	defaultIntervalMs  = 30000
)
