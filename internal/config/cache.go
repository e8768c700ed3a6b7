package config // config also carries the response cache settings

import (
    "strings" // splitting and normalising the method list
    "time"    // TTL is expressed as a duration
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Only catalog reads are cached; seat maps change on every hold and are
// never routed through the cache.
type CacheConfig struct {
    Enabled      bool            // CACHE_ENABLED
    Methods      map[string]bool // CACHE_METHODS, upper-cased
    TTL          time.Duration   // CACHE_TTL, lifetime of one entry
    KeyStrategy  string          // CACHE_KEY_STRATEGY: route_query, route, path or method_path_query
    Prefix       string          // CACHE_PREFIX, namespace for redis keys
    MaxBodyBytes int             // CACHE_MAX_BODY_BYTES, larger responses are not stored
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),               // on unless explicitly disabled
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")), // only safe reads by default
        TTL:          envDur("CACHE_TTL", 30*time.Second),          // catalog data changes rarely
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20), // 1 MiB
    }
}

// parseMethods turns "get, head" into {"GET": true, "HEAD": true}.
func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" { // skip empty entries from trailing commas
            m[p] = true
        }
    }
    return m
}
