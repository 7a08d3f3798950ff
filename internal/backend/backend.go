// Package backend defines the shared interface the three LLM execution
// strategies (direct chat, agent subprocess, ACP stdio JSON-RPC) present to
// the orchestrator, plus the streaming event vocabulary the subprocess and
// ACP backends emit for live UI.
package backend

import "context"

// Backend is the common surface every execution strategy implements.
type Backend interface {
	// Execute sends prompt and returns the raw text response.
	Execute(ctx context.Context, prompt string) (string, error)
	// ExecuteWithRetry retries Execute up to maxRetries times with
	// exponential backoff on transient failures.
	ExecuteWithRetry(ctx context.Context, prompt string, maxRetries int) (string, error)
}

// EventKind enumerates the streaming event vocabulary a backend may emit
// while processing a single request.
type EventKind string

const (
	EventText         EventKind = "text"
	EventToolUse      EventKind = "tool_use"
	EventToolComplete EventKind = "tool_complete"
	EventProgress     EventKind = "progress"
	EventComplete     EventKind = "complete"
	EventError        EventKind = "error"
)

// Event is one streamed update from a backend's streaming variant.
type Event struct {
	Kind EventKind

	// Text carries EventText content.
	Text string

	// ToolName/ToolInput carry EventToolUse payload.
	ToolName  string
	ToolInput string

	// ToolSuccess carries EventToolComplete outcome.
	ToolSuccess bool

	// Err carries EventError detail.
	Err error
}

// EventCallback receives streamed events in order.
type EventCallback func(Event)

// Streamer is implemented by backends offering a live-UI streaming variant
// on top of their ordinary Execute.
type Streamer interface {
	ExecuteStreaming(ctx context.Context, prompt string, onEvent EventCallback) (string, error)
}
