// Package apperrors defines the typed error taxonomy shared across the
// scanner, so callers can branch on error kind with errors.As instead of
// string-matching messages.
package apperrors

import "fmt"

// SpawnError wraps a failure to start a subprocess or agent backend.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Command, e.Err)
}
func (e *SpawnError) Unwrap() error { return e.Err }

// BinaryNotFound is returned when a configured backend binary can't be
// resolved on PATH.
type BinaryNotFound struct {
	Name string
}

func (e *BinaryNotFound) Error() string {
	return fmt.Sprintf("binary not found: %s", e.Name)
}

// Timeout is returned when a backend call exceeds its deadline.
type Timeout struct {
	Operation string
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("timed out waiting for %s", e.Operation)
}

// ProcessError wraps a non-zero subprocess exit.
type ProcessError struct {
	Code   int
	Stderr string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process exited with code %d: %s", e.Code, e.Stderr)
}

// ACPError wraps a protocol-level failure talking to an ACP agent.
type ACPError struct {
	Method string
	Err    error
}

func (e *ACPError) Error() string {
	return fmt.Sprintf("acp %s failed: %v", e.Method, e.Err)
}
func (e *ACPError) Unwrap() error { return e.Err }

// ParseError is returned when a model's reply could not be parsed into a
// response (see internal/normalize).
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Detail)
}

// ConfigError wraps a configuration-file or flag validation failure.
type ConfigError struct {
	Kind   string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %s", e.Kind, e.Detail)
}

// CacheIOError wraps a cache read/write failure.
type CacheIOError struct {
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache i/o error at %s: %v", e.Path, e.Err)
}
func (e *CacheIOError) Unwrap() error { return e.Err }

// GitHubAPIError wraps a failure calling the GitHub API during MVRA
// repository discovery.
type GitHubAPIError struct {
	Endpoint string
	Err      error
}

func (e *GitHubAPIError) Error() string {
	return fmt.Sprintf("github api error calling %s: %v", e.Endpoint, e.Err)
}
func (e *GitHubAPIError) Unwrap() error { return e.Err }

// CloneError wraps a failure to clone or reuse a repository during MVRA's
// per-repo materialization step.
type CloneError struct {
	Repo string
	Err  error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("failed to materialize %s: %v", e.Repo, e.Err)
}
func (e *CloneError) Unwrap() error { return e.Err }
