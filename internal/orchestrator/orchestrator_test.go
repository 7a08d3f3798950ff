package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diffsec/parsentry/internal/cache"
	parcontext "github.com/diffsec/parsentry/internal/context"
	"github.com/diffsec/parsentry/internal/language"
	"github.com/diffsec/parsentry/internal/pattern"
	"github.com/diffsec/parsentry/internal/prompt"
)

type stubBackend struct {
	calls    int32
	response func(prompt string) (string, error)
}

func (b *stubBackend) Execute(_ context.Context, p string) (string, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.response(p)
}

func (b *stubBackend) ExecuteWithRetry(ctx context.Context, p string, _ int) (string, error) {
	return b.Execute(ctx, p)
}

func vulnerableResponse() (string, error) {
	return `{
		"scratchpad": "",
		"analysis": "sql injection",
		"poc": "",
		"confidence_score": 95,
		"vulnerability_types": ["SQLI"],
		"par_analysis": {"principals": [{"identifier":"req","trust_level":"untrusted","source_context":"","risk_factors":[]}], "actions": [], "resources": [], "policy_violations": []},
		"remediation_guidance": {"policy_enforcement": []}
	}`, nil
}

func benignResponse() (string, error) {
	return `{
		"scratchpad": "",
		"analysis": "nothing found",
		"poc": "",
		"confidence_score": 0,
		"vulnerability_types": [],
		"par_analysis": {"principals": [], "actions": [], "resources": [], "policy_violations": []},
		"remediation_guidance": {"policy_enforcement": []}
	}`, nil
}

func newTestBundle(t *testing.T, path string) *parcontext.Bundle {
	t.Helper()
	return &parcontext.Bundle{
		FilePath:   path,
		Language:   language.Python,
		FullSource: "def handler(req): cursor.execute(req.GET['q'])",
		Match: pattern.Match{
			Kind: pattern.Action,
			Config: pattern.Config{
				Description: "raw SQL execution",
			},
			MatchedText: "cursor.execute(req.GET['q'])",
		},
	}
}

func newTestOrchestrator(t *testing.T, be *stubBackend) *Orchestrator {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(Config{
		Backend:       be,
		Cache:         store,
		Provider:      "test-provider",
		Model:         "test-model",
		MinConfidence: 50,
		Format:        prompt.Json{},
		Lang:          prompt.English,
		RootDir:       "/repo",
	})
}

func TestRunWritesFindingAboveConfidenceThreshold(t *testing.T) {
	be := &stubBackend{response: func(string) (string, error) { return vulnerableResponse() }}
	o := newTestOrchestrator(t, be)

	summary, err := o.Run(context.Background(), []Task{{Bundle: newTestBundle(t, "/repo/app/views.py")}})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(summary.Outcomes))
	}
	if !summary.Outcomes[0].Written() {
		t.Fatal("expected the high-confidence SQLI finding to be written")
	}
	if summary.Outcomes[0].Filename != "app-views.py.md" {
		t.Errorf("unexpected filename %q", summary.Outcomes[0].Filename)
	}
}

func TestRunDropsBenignFindingBelowThreshold(t *testing.T) {
	be := &stubBackend{response: func(string) (string, error) { return benignResponse() }}
	o := newTestOrchestrator(t, be)

	summary, err := o.Run(context.Background(), []Task{{Bundle: newTestBundle(t, "/repo/app/views.py")}})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Outcomes[0].Written() {
		t.Fatal("expected a zero-confidence benign result not to be written")
	}
	if summary.Dropped != 0 {
		t.Errorf("a below-threshold finding is not an error drop, got Dropped=%d", summary.Dropped)
	}
}

func TestRunSecondCallServedFromCache(t *testing.T) {
	be := &stubBackend{response: func(string) (string, error) { return vulnerableResponse() }}
	o := newTestOrchestrator(t, be)

	bundle := newTestBundle(t, "/repo/app/views.py")
	if _, err := o.Run(context.Background(), []Task{{Bundle: bundle}}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(context.Background(), []Task{{Bundle: bundle}}); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&be.calls); got != 1 {
		t.Errorf("expected the backend to be called once (second run served from cache), got %d calls", got)
	}
}

func TestRunDropsItemOnUnrecoverableErrorWithoutAbortingScan(t *testing.T) {
	failing := int32(0)
	be := &stubBackend{response: func(p string) (string, error) {
		if atomic.AddInt32(&failing, 1) == 1 {
			return "", errors.New("backend exploded")
		}
		return vulnerableResponse()
	}}
	o := newTestOrchestrator(t, be)

	tasks := []Task{
		{Bundle: newTestBundle(t, "/repo/a.py")},
		{Bundle: newTestBundle(t, "/repo/b.py")},
	}
	summary, err := o.Run(context.Background(), tasks)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Outcomes) != 2 {
		t.Fatalf("expected both items to produce an outcome, got %d", len(summary.Outcomes))
	}
	if summary.Dropped != 1 {
		t.Errorf("expected exactly one dropped item, got %d", summary.Dropped)
	}
}

func TestRunHonorsCancellationByStartingNoNewTasks(t *testing.T) {
	be := &stubBackend{response: func(string) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return vulnerableResponse()
	}}
	o := newTestOrchestrator(t, be)
	o.cfg.MaxConcurrency = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var tasks []Task
	for i := 0; i < 5; i++ {
		tasks = append(tasks, Task{Bundle: newTestBundle(t, fmt.Sprintf("/repo/f%d.py", i))})
	}

	summary, err := o.Run(ctx, tasks)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Outcomes) != 0 {
		t.Errorf("expected no outcomes once context is already canceled before Run, got %d", len(summary.Outcomes))
	}
}
