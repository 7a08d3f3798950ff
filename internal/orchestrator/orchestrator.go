// Package orchestrator fans a set of pattern-match contexts out to an LLM
// backend with bounded concurrency, consulting the response cache first and
// normalizing whatever comes back into a per-file Markdown finding.
package orchestrator

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/diffsec/parsentry/internal/backend"
	"github.com/diffsec/parsentry/internal/cache"
	parcontext "github.com/diffsec/parsentry/internal/context"
	"github.com/diffsec/parsentry/internal/normalize"
	"github.com/diffsec/parsentry/internal/prompt"
	"github.com/diffsec/parsentry/internal/report"
	"github.com/diffsec/parsentry/internal/response"
)

// DefaultMaxRetries is how many times a failed backend call is retried with
// exponential backoff before the item is dropped.
const DefaultMaxRetries = 2

// DefaultMaxConcurrency bounds simultaneous in-flight backend calls when the
// caller doesn't override it.
const DefaultMaxConcurrency = 10

// Config configures a scan run.
type Config struct {
	Backend        backend.Backend
	Cache          *cache.Store
	Provider       string
	Model          string
	MaxConcurrency int
	MaxRetries     int
	MinConfidence  int
	RootDir        string
	Format         prompt.OutputFormat
	Lang           prompt.ResponseLanguage
}

// Task is one pattern match ready for LLM analysis.
type Task struct {
	Bundle *parcontext.Bundle
}

// Outcome is the per-task result: Response and Markdown/Filename are only
// populated when the finding cleared the confidence threshold; Err is set
// when the item was dropped after an unrecoverable failure.
type Outcome struct {
	FilePath string
	Response *response.Response
	Markdown []byte
	Filename string
	Err      error
}

// Written reports whether this outcome produced a Markdown report.
func (o Outcome) Written() bool { return o.Err == nil && o.Markdown != nil }

// Summary collects every task's Outcome plus a count of items dropped after
// an unrecoverable per-item error.
type Summary struct {
	Outcomes []Outcome
	Dropped  int
}

// Findings returns the SARIF-ready subset of outcomes that produced a
// written finding.
func (s *Summary) Findings() []report.Finding {
	var out []report.Finding
	for _, o := range s.Outcomes {
		if o.Written() {
			out = append(out, report.Finding{FilePath: o.FilePath, Response: o.Response})
		}
	}
	return out
}

// SummaryRows projects written outcomes into Markdown summary table rows.
func (s *Summary) SummaryRows() []report.SummaryRow {
	var rows []report.SummaryRow
	for _, o := range s.Outcomes {
		if !o.Written() {
			continue
		}
		var types []string
		for _, vt := range o.Response.VulnerabilityTypes {
			types = append(types, vt.String())
		}
		rows = append(rows, report.SummaryRow{
			FilePath:        o.FilePath,
			VulnTypes:       types,
			ConfidenceScore: o.Response.ConfidenceScore,
			Severity:        o.Response.SeverityLevel(),
		})
	}
	return rows
}

// Orchestrator runs a batch of Tasks against one backend with bounded
// concurrency, caching, retry, and per-item error isolation.
type Orchestrator struct {
	cfg    Config
	keys   *cache.KeyGenerator
	logger *logrus.Entry
}

// New constructs an Orchestrator, filling in default retry/concurrency
// bounds when the caller leaves them at zero.
func New(cfg Config) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Orchestrator{
		cfg:    cfg,
		keys:   cache.NewKeyGenerator(),
		logger: logrus.WithField("component", "orchestrator"),
	}
}

// Run executes every task with bounded concurrency. Results are collected in
// completion order (unordered with respect to the input). A canceled ctx
// (e.g. Ctrl-C) starts no new tasks; in-flight tasks see the cancellation
// through their ctx, and one whose backend call fails because of it is
// recorded like any other per-item error. Per-item errors never abort the
// rest of the scan — they are recorded on the Outcome and counted in
// Summary.Dropped.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task) (*Summary, error) {
	summary := &Summary{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrency)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcome := o.runOne(gctx, task)

			mu.Lock()
			defer mu.Unlock()
			if outcome.Err != nil {
				summary.Dropped++
				o.logger.WithError(outcome.Err).WithField("file", outcome.FilePath).
					Warn("dropping finding after unrecoverable error")
			}
			summary.Outcomes = append(summary.Outcomes, outcome)
			return nil
		})
	}
	_ = g.Wait()

	return summary, nil
}

// runOne renders the prompt for one bundle, serves it from cache or the
// backend, normalizes the reply, and builds a Markdown report when the
// finding clears the confidence bar.
func (o *Orchestrator) runOne(ctx context.Context, task Task) Outcome {
	bundle := task.Bundle
	outcome := Outcome{FilePath: bundle.FilePath}

	rendered, err := (prompt.SecurityAnalysisPrompt{
		Bundle: bundle,
		Format: o.cfg.Format,
		Lang:   o.cfg.Lang,
	}).Render()
	if err != nil {
		outcome.Err = err
		return outcome
	}

	key := o.keys.GenerateKey(rendered, o.cfg.Model, o.cfg.Provider)

	raw, err := o.fetch(ctx, rendered, key)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	resp, err := normalize.Parse(raw)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Response = resp

	if !resp.HasVulnerability() || resp.ConfidenceScore < o.cfg.MinConfidence {
		return outcome
	}

	outcome.Markdown = report.Markdown(resp)
	outcome.Filename = report.OutputFilename(bundle.FilePath, o.cfg.RootDir)
	return outcome
}

// fetch serves a prompt from cache when present, otherwise calls the
// backend with retry and stores the result under key before returning.
func (o *Orchestrator) fetch(ctx context.Context, prompt, key string) (string, error) {
	if entry, err := o.cfg.Cache.Get(o.cfg.Provider, o.cfg.Model, key); err == nil && entry != nil {
		return entry.Response, nil
	}

	raw, err := o.cfg.Backend.ExecuteWithRetry(ctx, prompt, o.cfg.MaxRetries)
	if err != nil {
		return "", err
	}

	entry := cache.NewEntry(cache.Version, o.cfg.Provider, o.cfg.Model, key, raw, len(prompt))
	if setErr := o.cfg.Cache.Set(entry); setErr != nil {
		o.logger.WithError(setErr).Warn("failed to persist cache entry")
	}
	return raw, nil
}
