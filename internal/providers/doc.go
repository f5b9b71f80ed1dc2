// Package providers implements the host's external capability adapters.
//
// Available providers:
//   - agent: HTTP client to the agent backend (tools, resources, sampling)
//   - mcpext: directly-connected MCP extension servers
//   - bundled: extensions shipped with the host, served from disk
//   - theme: theme registry feeding the host context
//
// The chain fetcher in this package composes the bundled and agent providers
// into the single resource fetcher consumed by the app loader.
package providers
