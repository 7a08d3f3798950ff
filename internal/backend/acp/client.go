// Package acp implements the Agent Client Protocol stdio JSON-RPC backend:
// this process plays the client role against a spawned agent process,
// answering its permission/file-I/O requests and accumulating the text it
// streams back as session notifications.
package acp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
)

// Client is the client-side ACP handler: it answers requests the spawned
// agent makes of its host (permission prompts, file reads/writes, terminal
// lifecycle) and collects AgentMessageChunk text from session_notification.
type Client struct {
	workingDir string
	outputDir  string // empty means "not configured": writes fall back to workingDir

	mu     sync.Mutex
	buffer strings.Builder
}

// NewClient returns a Client scoped to workingDir, with no output directory
// configured yet.
func NewClient(workingDir string) *Client {
	return &Client{workingDir: workingDir}
}

// WithOutputDir sets the directory write_text_file requests are confined
// to. Returns c for chaining.
func (c *Client) WithOutputDir(outputDir string) *Client {
	c.outputDir = outputDir
	return c
}

// TakeResponse returns the accumulated response text and clears the buffer.
func (c *Client) TakeResponse() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.buffer.String()
	c.buffer.Reset()
	return s
}

type permissionOption struct {
	OptionID string `json:"optionId"`
}

type requestPermissionParams struct {
	Options []permissionOption `json:"options"`
}

type selectedOutcome struct {
	Outcome  string `json:"outcome"`
	OptionID string `json:"optionId"`
}

type requestPermissionResult struct {
	Outcome selectedOutcome `json:"outcome"`
}

type readTextFileParams struct {
	Path string `json:"path"`
}

type readTextFileResult struct {
	Content string `json:"content"`
}

type writeTextFileParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URI  string `json:"uri"`
}

type agentMessageChunk struct {
	Content contentBlock `json:"content"`
}

type sessionNotificationParams struct {
	Update struct {
		SessionUpdate string          `json:"sessionUpdate"`
		Content       json.RawMessage `json:"content"`
	} `json:"update"`
}

// Handle implements jsonrpc2.Handler, dispatching every method an agent can
// call on its client. Runs on the connection's single read-dispatch
// goroutine, so no additional locking is needed beyond guarding the
// response buffer (which Prompt also reads from a different goroutine).
func (c *Client) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case "session/request_permission":
		c.handleRequestPermission(ctx, conn, req)
	case "fs/read_text_file":
		c.handleReadTextFile(ctx, conn, req)
	case "fs/write_text_file":
		c.handleWriteTextFile(ctx, conn, req)
	case "session/update":
		c.handleSessionUpdate(req)
	case "terminal/create", "terminal/output", "terminal/release",
		"terminal/wait_for_exit", "terminal/kill":
		c.replyMethodNotFound(ctx, conn, req)
	default:
		if req.Notif {
			return
		}
		c.replyMethodNotFound(ctx, conn, req)
	}
}

func (c *Client) replyMethodNotFound(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		return
	}
	_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
		Code:    jsonrpc2.CodeMethodNotFound,
		Message: "method not found",
	})
}

func (c *Client) handleRequestPermission(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params requestPermissionParams
	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}
	if len(params.Options) == 0 {
		c.replyMethodNotFound(ctx, conn, req)
		return
	}
	result := requestPermissionResult{
		Outcome: selectedOutcome{Outcome: "selected", OptionID: params.Options[0].OptionID},
	}
	_ = conn.Reply(ctx, req.ID, result)
}

func (c *Client) handleReadTextFile(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params readTextFileParams
	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}

	if !isWithin(params.Path, c.workingDir) {
		_ = conn.Reply(ctx, req.ID, readTextFileResult{Content: ""})
		return
	}

	data, err := os.ReadFile(params.Path)
	if err != nil {
		_ = conn.Reply(ctx, req.ID, readTextFileResult{Content: ""})
		return
	}
	_ = conn.Reply(ctx, req.ID, readTextFileResult{Content: string(data)})
}

func (c *Client) handleWriteTextFile(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params writeTextFileParams
	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}

	root := c.outputDir
	if root == "" {
		root = c.workingDir
	}
	if !isWithin(params.Path, root) {
		_ = conn.Reply(ctx, req.ID, struct{}{})
		return
	}

	if err := os.MkdirAll(filepath.Dir(params.Path), 0o755); err != nil {
		_ = conn.Reply(ctx, req.ID, struct{}{})
		return
	}
	_ = os.WriteFile(params.Path, []byte(params.Content), 0o644)
	_ = conn.Reply(ctx, req.ID, struct{}{})
}

func (c *Client) handleSessionUpdate(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}
	var params sessionNotificationParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return
	}
	if params.Update.SessionUpdate != "agent_message_chunk" {
		return
	}
	var block contentBlock
	if err := json.Unmarshal(params.Update.Content, &block); err != nil {
		return
	}

	var text string
	switch block.Type {
	case "text":
		text = block.Text
	case "resource_link":
		text = block.URI
	case "image":
		text = "<image>"
	case "audio":
		text = "<audio>"
	case "resource":
		text = "<resource>"
	default:
		text = "<unknown>"
	}

	c.mu.Lock()
	c.buffer.WriteString(text)
	c.mu.Unlock()
}

// isWithin reports whether path is lexically contained within root.
func isWithin(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
