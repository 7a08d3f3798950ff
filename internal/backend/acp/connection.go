package acp

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/diffsec/parsentry/internal/apperrors"
)

// Connection is a live stdio JSON-RPC session with one spawned agent
// process: initialize → new_session happen once, then prompt may be called
// repeatedly before Close.
type Connection struct {
	cmd        *exec.Cmd
	conn       *jsonrpc2.Conn
	client     *Client
	sessionID  string
	workingDir string
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion int         `json:"protocolVersion"`
	ClientInfo      clientInfo `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion int `json:"protocolVersion"`
}

type newSessionParams struct {
	Cwd string `json:"cwd"`
}

type newSessionResult struct {
	SessionID string `json:"sessionId"`
}

type promptContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type promptParams struct {
	SessionID string               `json:"sessionId"`
	Prompt    []promptContentBlock `json:"prompt"`
}

type promptResult struct {
	StopReason string `json:"stopReason"`
}

// Spawn starts agentPath as a subprocess, wires a client-role JSON-RPC
// connection over its stdin/stdout, and returns once the process is
// running (initialize/new_session are separate calls).
func Spawn(ctx context.Context, agentPath string, args []string, workingDir string, outputDir string) (*Connection, error) {
	cmd := exec.CommandContext(ctx, agentPath, args...)
	cmd.Dir = workingDir
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &apperrors.SpawnError{Command: agentPath, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &apperrors.SpawnError{Command: agentPath, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &apperrors.SpawnError{Command: agentPath, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &apperrors.SpawnError{Command: agentPath, Err: err}
	}
	go drainReader(stderr)

	client := NewClient(workingDir)
	if outputDir != "" {
		client.WithOutputDir(outputDir)
	}

	stream := jsonrpc2.NewBufferedStream(pipePair{ReadCloser: stdout, WriteCloser: stdin}, ndjsonCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, client)

	return &Connection{cmd: cmd, conn: conn, client: client, workingDir: workingDir}, nil
}

// Initialize performs the protocol handshake.
func (c *Connection) Initialize(ctx context.Context) error {
	var result initializeResult
	err := c.conn.Call(ctx, "initialize", initializeParams{
		ProtocolVersion: 1,
		ClientInfo:      clientInfo{Name: "parsentry", Version: "0.1.0"},
	}, &result)
	if err != nil {
		return &apperrors.ACPError{Method: "initialize", Err: err}
	}
	return nil
}

// NewSession opens a session rooted at the connection's working directory.
func (c *Connection) NewSession(ctx context.Context) (string, error) {
	var result newSessionResult
	err := c.conn.Call(ctx, "session/new", newSessionParams{Cwd: c.workingDir}, &result)
	if err != nil {
		return "", &apperrors.ACPError{Method: "session/new", Err: err}
	}
	c.sessionID = result.SessionID
	return result.SessionID, nil
}

// Prompt sends message to the active session and returns the accumulated
// AgentMessageChunk text collected by the client while the request was
// in flight.
func (c *Connection) Prompt(ctx context.Context, message string) (string, error) {
	if c.sessionID == "" {
		return "", fmt.Errorf("acp: no active session, call NewSession first")
	}
	c.client.TakeResponse() // clear any stale buffer content

	var result promptResult
	err := c.conn.Call(ctx, "session/prompt", promptParams{
		SessionID: c.sessionID,
		Prompt:    []promptContentBlock{{Type: "text", Text: message}},
	}, &result)
	if err != nil {
		return "", &apperrors.ACPError{Method: "session/prompt", Err: err}
	}
	return c.client.TakeResponse(), nil
}

// Close terminates the connection and the underlying process.
func (c *Connection) Close() error {
	c.sessionID = ""
	_ = c.conn.Close()

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		killProcessGroup(c.cmd)
	}
	return nil
}

func drainReader(r interface{ Read([]byte) (int, error) }) {
	buf := make([]byte, 4096)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
	}
}
