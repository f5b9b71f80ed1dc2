// Package mcpext adapts a directly-connected MCP extension server to the
// session collaborator interfaces. Unlike the agent backend client, the
// connection itself scopes the extension, so session IDs are not forwarded.
package mcpext
