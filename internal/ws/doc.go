// Package ws provides WebSocket handling for real-time execution streaming.
//
// This package lets a client submit code for execution over a persistent
// connection and receive lifecycle events as they happen, instead of
// waiting on a single HTTP round trip.
//
// Message Types (Client → Server):
//   - execute: Run code against test cases
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - started: Execution dispatched to the worker
//   - result: Normalized execution result
//   - pong: Keep-alive reply
//   - error: Error occurred
//
// Example Usage:
//
//	handler := ws.NewHandler(svc, log, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
