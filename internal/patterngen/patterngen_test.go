package patterngen

import (
	"strings"
	"testing"

	"github.com/diffsec/parsentry/internal/language"
	"github.com/diffsec/parsentry/internal/pattern"
)

func TestValidQueryRejectsUnbalancedParens(t *testing.T) {
	if validQuery("(function_definition name: (identifier) @name") {
		t.Error("expected unbalanced parens to be rejected")
	}
}

func TestValidQueryRejectsMissingCapture(t *testing.T) {
	if validQuery("(function_definition name: (identifier))") {
		t.Error("expected a query with no @capture to be rejected")
	}
}

func TestValidQueryAcceptsWellFormedQuery(t *testing.T) {
	q := `(function_definition name: (identifier) @name (#eq? @name "exec")) @function`
	if !validQuery(q) {
		t.Error("expected a balanced query with a capture to be accepted")
	}
}

func TestDedupeCandidatesByNameKindForm(t *testing.T) {
	in := []Candidate{
		{FunctionName: "exec", Kind: pattern.Resource, Form: pattern.FormDefinition, Query: "a"},
		{FunctionName: "exec", Kind: pattern.Resource, Form: pattern.FormDefinition, Query: "b"},
		{FunctionName: "exec", Kind: pattern.Resource, Form: pattern.FormReference, Query: "c"},
	}
	out := dedupeCandidates(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped candidates, got %d", len(out))
	}
}

func TestExtractPatternsJSONHandlesSurroundingText(t *testing.T) {
	raw := "Sure, here is the analysis:\n{\"patterns\": [{\"classification\": \"actions\", \"function_name\": \"sanitize\", \"query_type\": \"definition\", \"query\": \"(x) @y\", \"description\": \"d\", \"reasoning\": \"r\", \"attack_vector\": []}]}\nHope that helps!"
	resp, err := extractPatternsJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Patterns) != 1 || resp.Patterns[0].FunctionName != "sanitize" {
		t.Fatalf("unexpected parse result: %+v", resp)
	}
}

func TestMergeIntoGroupsByKind(t *testing.T) {
	reg := pattern.Registry{}
	byLang := map[string][]Candidate{
		"Python": {
			{FunctionName: "request_arg", Kind: pattern.Principal, Form: pattern.FormReference, Query: "(x) @y", Description: "tainted input"},
			{FunctionName: "run_sql", Kind: pattern.Resource, Form: pattern.FormDefinition, Query: "(z) @w", Description: "db sink"},
		},
	}
	out := MergeInto(reg, byLang)
	lp := out["Python"]
	if len(lp.Principals) != 1 || len(lp.Resources) != 1 {
		t.Fatalf("expected 1 principal and 1 resource, got %+v", lp)
	}
}

func TestUniqueNamesCountsDistinctNames(t *testing.T) {
	items := []item{{Name: "a"}, {Name: "a"}, {Name: "b"}}
	if got := uniqueNames(items); got != 2 {
		t.Errorf("uniqueNames = %d, want 2", got)
	}
}

func TestBatchItemsSplitsBySize(t *testing.T) {
	items := make([]item, 65)
	batches := batchItems(items, 30)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches for 65 items at size 30, got %d", len(batches))
	}
	if len(batches[0]) != 30 || len(batches[2]) != 5 {
		t.Errorf("unexpected batch sizes: %d, %d, %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestRenderClassifyPromptMentionsLanguageAndForm(t *testing.T) {
	items := []item{{Name: "exec", Source: "def exec(): pass"}}
	out := renderClassifyPrompt(language.Python, pattern.FormDefinition, items)
	for _, want := range []string{"Python", "exec", "def exec(): pass", `"query_type": "definition"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected rendered prompt to contain %q, got: %s", want, out)
		}
	}
}
