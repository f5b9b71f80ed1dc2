// Package types provides shared data structures for the embedded-app host.
//
// This package defines the types that cross component boundaries, keeping
// the host core, the RPC bridge, the sandbox proxy, and the provider
// adapters in agreement about the wire-visible shapes.
//
// Core Types:
//   - DisplayMode: rendering posture for a hosted app frame
//   - ContentBlock: a single unit of tool or message content
//   - ToolResult: normalized result of a tool invocation
//   - ResourceContents: one entry of a resource read
//   - CSPDomains, ResourceMeta: security metadata carried by UI resources
package types
