// Package config provides 12-factor configuration management for the
// execution engine.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Engine: Execution limits, sampling interval, output caps, import policy
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - ENGINE_TIME_LIMIT_MS, ENGINE_MAX_TIME_LIMIT_MS, ENGINE_MEM_LIMIT_MB
//   - ENGINE_SAMPLE_INTERVAL, ENGINE_STDOUT_LIMIT, ENGINE_STDERR_LIMIT
//   - ENGINE_SNAPSHOT_NODE_CAP, ENGINE_ALLOWED_IMPORTS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
