package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 45 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Dependency ping timeout at startup
const PingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Expired PIN records are kept this long in Redis so validation can still
// report them as expired instead of missing.
const PinExpiredRetention = time.Hour

// In-memory rate limiter bound
const RateLimitMaxKeys = 10000

// Window used for the per-IP validation limit
const ValidateIPWindow = time.Minute
