// Package main is the entry point for the code execution engine server.
//
// This application runs student-submitted code in an isolated guest
// interpreter under wall-clock and memory ceilings, drives structured test
// cases against it, and returns normalized results with optional structure
// snapshots for debugging visualization.
//
// The server provides:
//   - REST API for one-shot execution
//   - WebSocket streaming for execution lifecycle events
//   - Prometheus metrics
//   - Health checks via the worker ping protocol
//
// Configuration:
//   - Environment variables (12-factor, ENGINE_ prefix)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8090
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
