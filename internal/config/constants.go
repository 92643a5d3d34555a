package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// Store-adapter call bounds: every repository call gets a hard timeout and at
// most one retry.
const (
	DBCallTimeout  = 5 * time.Second
	DBRetryBackoff = 100 * time.Millisecond
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background sweep interval for idle sessions and overdue tokens
const SweepInterval = 60 * time.Second

// Activity refreshes are throttled to bound hot-path overhead
const ActivityTouchThrottle = 5 * time.Second

// Rate limiting
const (
	DefaultRateLimitPerMin   = 60
	EmergencyRateLimitPerMin = 10
)
