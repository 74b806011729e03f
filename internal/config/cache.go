package config

import "time"

// CacheConfig drives the response cache in front of the public catalog
// endpoints. Caching is off when Enabled is false or Redis is unavailable.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // HTTP methods to cache, upper-cased
	TTL          time.Duration   // lifetime of an entry
	Prefix       string          // redis key namespace
	MaxBodyBytes int             // larger responses are not stored
}

func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 5*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
