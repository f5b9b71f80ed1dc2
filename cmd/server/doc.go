// Package main is the entry point for the embedded app host.
//
// The host sits between the chat frontend and the agent backend: it mounts
// extension UI resources as sandboxed app instances, proxies their sandbox
// documents, and bridges guest RPC back to the backend.
//
// Architecture:
//
//	Frontend (chat UI) → App Host → Agent Backend (tools, resources)
//	                             → Sandbox Proxy (guest documents)
//
// The server provides:
//   - REST API for app instance and session management
//   - WebSocket guest channels (JSON-RPC 2.0)
//   - Sandbox proxy with CSP enforcement
//   - SSE event stream for frontend UI effects
//   - Rate limiting and metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML config file
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -agent http://localhost:3000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
