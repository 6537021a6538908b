// Package server provides HTTP server setup and initialization for the
// execution engine.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, metrics, recovery)
//   - Execution supervisor and service wiring
//   - WebSocket handler registration
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Create supervisor and load the runtime image eagerly
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	if err := srv.Run(":8090"); err != nil {
//	    log.Fatal(err)
//	}
package server
