// Package session holds the chat session model and the collaborator
// interfaces the host core depends on: tool invocation, resource reads,
// sampling forwarding, link opening, confirmation dialogs, and transcript
// access. The implementations live out of scope (provider adapters, chat
// frontend); the host only ever sees these interfaces.
package session
