package acp

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/diffsec/parsentry/internal/apperrors"
	"github.com/diffsec/parsentry/internal/backend"
)

// MaxConcurrent is the hard cap on simultaneous ACP agent processes.
const MaxConcurrent = 10

// Config configures a Backend.
type Config struct {
	AgentPath     string
	Args          []string
	WorkingDir    string
	OutputDir     string
	Timeout       time.Duration
	MaxConcurrent int
}

// Backend is the ACP execution strategy: each request spawns its own agent
// process and connection, since the ACP handler loop is not safe to share
// across concurrent requests (it must run as a single cooperative task).
type Backend struct {
	cfg Config
	sem *semaphore.Weighted
}

// New constructs an ACP Backend.
func New(cfg Config) *Backend {
	concurrency := cfg.MaxConcurrent
	if concurrency <= 0 || concurrency > MaxConcurrent {
		concurrency = MaxConcurrent
	}
	return &Backend{cfg: cfg, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Execute spawns an agent process, runs initialize → new_session → prompt,
// then closes the connection.
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

	conn, err := Spawn(ctx, b.cfg.AgentPath, b.cfg.Args, b.cfg.WorkingDir, b.cfg.OutputDir)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.Initialize(ctx); err != nil {
		if ctx.Err() != nil {
			return "", &apperrors.Timeout{Operation: "acp initialize"}
		}
		return "", err
	}
	if _, err := conn.NewSession(ctx); err != nil {
		if ctx.Err() != nil {
			return "", &apperrors.Timeout{Operation: "acp new_session"}
		}
		return "", err
	}
	text, err := conn.Prompt(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", &apperrors.Timeout{Operation: "acp prompt"}
		}
		return "", err
	}
	return text, nil
}

// ExecuteWithRetry retries Execute with exponential backoff.
func (b *Backend) ExecuteWithRetry(ctx context.Context, prompt string, maxRetries int) (string, error) {
	return backend.RetryWithBackoff(ctx, maxRetries, func() (string, error) {
		return b.Execute(ctx, prompt)
	})
}

var _ backend.Backend = (*Backend)(nil)
