package config

import "time"

// CacheConfig defines settings for the contact query cache.  When Enabled is
// false or no Redis client is configured, caching is disabled and every
// request goes straight to the database.  Search results are ad hoc and kept
// on a short TTL; birthday results come from a low-cardinality calendar
// range and can be cached longer.
type CacheConfig struct {
	Enabled      bool
	SearchTTL    time.Duration
	BirthdaysTTL time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		SearchTTL:    envDur("CACHE_SEARCH_TTL", 60*time.Second),
		BirthdaysTTL: envDur("CACHE_BIRTHDAYS_TTL", 600*time.Second),
	}
}
