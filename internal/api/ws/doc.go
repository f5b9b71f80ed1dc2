/*
Package ws carries the guest messaging channel: one WebSocket per embedded
frame, speaking JSON-RPC 2.0 frames.

A connecting guest names its instance; the channel registers with the
instance's tracker so the display controller can verify message sources, and
deregisters on close. Two methods are handled in the channel itself —
ui/initialize (capability negotiation) and ui/request-display-mode — because
they mutate display state keyed to the source channel. Everything else is
dispatched through the instance's bridge. Display mode changes push a
ui/host-context-changed notification to every channel of the instance.
*/
package ws
