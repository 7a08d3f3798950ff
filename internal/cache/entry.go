package cache

import "time"

// Metadata tracks bookkeeping fields used by the cleanup sweep and cost
// reporting; it is stored alongside the cached response, not derived from it.
type Metadata struct {
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`
	CostUSD      *float64  `json:"cost_usd,omitempty"`
	DurationMS   *uint64   `json:"duration_ms,omitempty"`
	PromptSize   int       `json:"prompt_size"`
	ResponseSize int       `json:"response_size"`
}

// Entry is a single cached LLM response plus its management metadata.
type Entry struct {
	Version    string   `json:"version"`
	Agent      string   `json:"agent"`
	Model      string   `json:"model"`
	PromptHash string   `json:"prompt_hash"`
	Response   string   `json:"response"`
	Metadata   Metadata `json:"metadata"`
}

// NewEntry creates a fresh cache entry stamped with the current time.
func NewEntry(version, agent, model, promptHash, response string, promptSize int) *Entry {
	now := time.Now().UTC()
	return &Entry{
		Version:    version,
		Agent:      agent,
		Model:      model,
		PromptHash: promptHash,
		Response:   response,
		Metadata: Metadata{
			CreatedAt:    now,
			LastAccessed: now,
			AccessCount:  0,
			PromptSize:   promptSize,
			ResponseSize: len(response),
		},
	}
}

// RecordAccess bumps the access counter and refreshes LastAccessed.
func (e *Entry) RecordAccess() {
	e.Metadata.LastAccessed = time.Now().UTC()
	e.Metadata.AccessCount++
}

// SetCost records the USD cost of having produced this response.
func (e *Entry) SetCost(costUSD float64) { e.Metadata.CostUSD = &costUSD }

// SetDuration records how long the backend call took.
func (e *Entry) SetDuration(durationMS uint64) { e.Metadata.DurationMS = &durationMS }

// AgeDays returns days elapsed since creation.
func (e *Entry) AgeDays() int64 {
	return int64(time.Since(e.Metadata.CreatedAt).Hours() / 24)
}

// IdleDays returns days elapsed since the entry was last accessed.
func (e *Entry) IdleDays() int64 {
	return int64(time.Since(e.Metadata.LastAccessed).Hours() / 24)
}
