// Package http exposes the host control API consumed by the chat frontend:
// app instance lifecycle (attach, detach, close, focus), display control
// (mode, escape, viewport, PiP geometry), session management, and metrics.
// The guest-facing surfaces live elsewhere (api/proxy, api/ws); nothing in
// this package is reachable by guest content.
package http
