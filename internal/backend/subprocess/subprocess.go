// Package subprocess implements the agent-CLI execution strategy: spawn a
// configured binary per request, feed the prompt on stdin, collect
// newline-delimited JSON from stdout, and extract the final assistant
// message (optionally a fenced ```json``` block within it).
//
// Process lifecycle: new process group, stderr drain goroutine, graceful
// wait with a hard kill fallback.
package subprocess

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/diffsec/parsentry/internal/apperrors"
	"github.com/diffsec/parsentry/internal/backend"
)

// MaxConcurrent is the hard cap on simultaneous subprocess invocations.
const MaxConcurrent = 10

// Config configures a Backend.
type Config struct {
	Command       string
	Args          []string
	Timeout       time.Duration
	MaxConcurrent int
}

// Backend is the agent-subprocess execution strategy.
type Backend struct {
	cfg Config
	sem *semaphore.Weighted
}

// New constructs a subprocess Backend.
func New(cfg Config) *Backend {
	concurrency := cfg.MaxConcurrent
	if concurrency <= 0 || concurrency > MaxConcurrent {
		concurrency = MaxConcurrent
	}
	return &Backend{cfg: cfg, sem: semaphore.NewWeighted(int64(concurrency))}
}

// jsonlMessage is one line of the agent CLI's --json streaming output. Only
// the fields every known agent CLI shares are modeled; everything else is
// ignored.
type jsonlMessage struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name"`
	Input   string `json:"input"`
	Success bool   `json:"success"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// Execute spawns the configured binary, writes prompt to stdin, and returns
// the last assistant message's content, preferring a fenced JSON block
// within it when present.
func (b *Backend) Execute(ctx context.Context, prompt string) (string, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	if _, err := exec.LookPath(b.cfg.Command); err != nil {
		return "", &apperrors.BinaryNotFound{Name: b.cfg.Command}
	}

	args := append(append([]string{}, b.cfg.Args...), "--json")
	cmd := exec.CommandContext(ctx, b.cfg.Command, args...)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}
	go drain(stderr)

	if _, err := stdin.Write([]byte(prompt)); err != nil {
		killProcessGroup(cmd)
		return "", fmt.Errorf("write prompt to %s: %w", b.cfg.Command, err)
	}
	_ = stdin.Close()

	lastAssistant, scanErr := lastAssistantMessage(stdout)

	waitErr := waitWithTimeout(cmd, 5*time.Second)
	if ctx.Err() != nil {
		return "", &apperrors.Timeout{Operation: fmt.Sprintf("subprocess %s", b.cfg.Command)}
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return "", &apperrors.ProcessError{Code: exitErr.ExitCode()}
		}
		return "", fmt.Errorf("wait for %s: %w", b.cfg.Command, waitErr)
	}
	if scanErr != nil {
		return "", fmt.Errorf("read %s output: %w", b.cfg.Command, scanErr)
	}

	return extractJSON(lastAssistant), nil
}

// ExecuteWithRetry retries Execute with exponential backoff.
func (b *Backend) ExecuteWithRetry(ctx context.Context, prompt string, maxRetries int) (string, error) {
	return backend.RetryWithBackoff(ctx, maxRetries, func() (string, error) {
		return b.Execute(ctx, prompt)
	})
}

// ExecuteStreaming mirrors Execute but emits an Event per JSONL line as it
// arrives, for a live-updating UI.
func (b *Backend) ExecuteStreaming(ctx context.Context, prompt string, onEvent backend.EventCallback) (string, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)

	if _, err := exec.LookPath(b.cfg.Command); err != nil {
		return "", &apperrors.BinaryNotFound{Name: b.cfg.Command}
	}

	args := append(append([]string{}, b.cfg.Args...), "--json")
	cmd := exec.CommandContext(ctx, b.cfg.Command, args...)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return "", &apperrors.SpawnError{Command: b.cfg.Command, Err: err}
	}
	go drain(stderr)

	if _, err := stdin.Write([]byte(prompt)); err != nil {
		killProcessGroup(cmd)
		return "", fmt.Errorf("write prompt to %s: %w", b.cfg.Command, err)
	}
	_ = stdin.Close()

	var lastAssistant string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var msg jsonlMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "tool_use":
			onEvent(backend.Event{Kind: backend.EventToolUse, ToolName: msg.Name, ToolInput: msg.Input})
		case "tool_complete":
			onEvent(backend.Event{Kind: backend.EventToolComplete, ToolName: msg.Name, ToolSuccess: msg.Success})
		case "progress":
			onEvent(backend.Event{Kind: backend.EventProgress, Text: msg.Content})
		default:
			if msg.Role == "assistant" {
				lastAssistant = msg.Content
				onEvent(backend.Event{Kind: backend.EventText, Text: msg.Content})
			}
		}
	}

	waitErr := waitWithTimeout(cmd, 5*time.Second)
	if waitErr != nil {
		onEvent(backend.Event{Kind: backend.EventError, Err: waitErr})
		return "", fmt.Errorf("wait for %s: %w", b.cfg.Command, waitErr)
	}
	onEvent(backend.Event{Kind: backend.EventComplete})
	return extractJSON(lastAssistant), nil
}

func lastAssistantMessage(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	var last string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var msg jsonlMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.Role == "assistant" {
			last = msg.Content
		}
	}
	return last, scanner.Err()
}

func extractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

func drain(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
	}
}

func waitWithTimeout(cmd *exec.Cmd, grace time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		killProcessGroup(cmd)
		return <-done
	}
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Streamer = (*Backend)(nil)
