// Package chat implements the direct synchronous HTTP chat backend: one
// request, one JSON-schema-constrained response, against the OpenAI API or
// any OpenAI-compatible endpoint reached via a configured base URL.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/sync/semaphore"

	"github.com/diffsec/parsentry/internal/apperrors"
	"github.com/diffsec/parsentry/internal/backend"
)

// MaxConcurrent is the hard cap on simultaneous direct-chat requests.
const MaxConcurrent = 50

// Backend is the direct chat execution strategy.
type Backend struct {
	client  openai.Client
	model   string
	timeout time.Duration
	sem     *semaphore.Weighted
	schema  map[string]any
}

// Config configures a Backend. BaseURL, when set, points the client at an
// OpenAI-compatible endpoint instead of the OpenAI API. APIKeyEnv is not
// read by this package; the API key is the apiKey argument to New.
type Config struct {
	Model         string
	BaseURL       string
	APIKeyEnv     string
	Timeout       time.Duration
	MaxConcurrent int
	ResponseSchema map[string]any
}

// New constructs a direct chat Backend from cfg, passing apiKey to the SDK
// via option.WithAPIKey; when apiKey is empty the SDK's own default
// (the OPENAI_API_KEY environment variable) applies.
func New(cfg Config, apiKey string) *Backend {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	concurrency := cfg.MaxConcurrent
	if concurrency <= 0 || concurrency > MaxConcurrent {
		concurrency = MaxConcurrent
	}

	return &Backend{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		schema:  cfg.ResponseSchema,
	}
}

// Execute sends prompt as a single user message and returns the raw
// completion text, constrained to schema when one was configured.
func (b *Backend) Execute(ctx context.Context, prompt string) (string, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	if b.schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "parsentry_finding",
					Schema: b.schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", &apperrors.Timeout{Operation: "direct chat completion"}
		}
		return "", fmt.Errorf("direct chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("direct chat completion: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

// ExecuteWithRetry retries Execute with exponential backoff.
func (b *Backend) ExecuteWithRetry(ctx context.Context, prompt string, maxRetries int) (string, error) {
	return backend.RetryWithBackoff(ctx, maxRetries, func() (string, error) {
		return b.Execute(ctx, prompt)
	})
}

var _ backend.Backend = (*Backend)(nil)
