/*
Package bridge implements the RPC surface exposed to embedded guests.

Every guest-originated request lands in Dispatch, which routes through a
typed method table with a single fallback branch. Handlers never let a Go
error or panic escape across the channel boundary: every failure is
serialized as a structured Error the guest can choose to display.

Supported methods:

  - ui/open-link          open a URL, with confirmation for unsafe schemes
  - ui/message            append guest content to the chat transcript
  - tools/call            invoke a tool, name prefixed with the extension
  - resources/read        read a resource within the session
  - notifications/message best-effort log relay
  - ui/size-changed       forward a content height to the display controller

The fallback special-cases sampling/createMessage, forwarded to the agent
backend with the session's address and secret; any other method yields a
method-not-found Error instead of an exception.
*/
package bridge
