// Package agent is the HTTP client for the agent backend. It implements the
// session collaborator interfaces (tool calls, resource reads, sampling
// forwards) and the resource fetcher used by the app loader, layering rate
// limiting, retries, and a circuit breaker over a resty client.
package agent
