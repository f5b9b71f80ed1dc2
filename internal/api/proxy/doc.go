/*
Package proxy serves sandboxed guest content under host-controlled CSP.

Two routes, both secret-authenticated:

  - GET /mcp-app-proxy derives the outer CSP from the declared domain
    allow-lists and serves the proxy document that hosts the guest frame.
    The outer CSP is a ceiling: the guest cannot exceed it no matter what
    its own markup declares.
  - /mcp-app-guest stages guest HTML (POST, returns a nonce) and serves it
    back exactly once (GET). Entries are gzip-compressed at rest, expire
    after a TTL, and the store holds a bounded number of entries with
    oldest-first eviction.
*/
package proxy
