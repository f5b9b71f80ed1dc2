// Package frontend delivers host-side UI effects to the chat frontend:
// external link opens, transcript appends, scroll signals, and confirmation
// prompts. Events stream to the frontend over SSE; confirmation replies come
// back over a POST route. The hub implements the session collaborator
// interfaces the bridge depends on.
package frontend
