package mvra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diffsec/parsentry/internal/report"
	"github.com/diffsec/parsentry/internal/response"
	"github.com/diffsec/parsentry/internal/vulntype"
)

func sqlInjectionFinding(path string) report.Finding {
	return report.Finding{
		FilePath: path,
		Response: &response.Response{
			Analysis:           "raw SQL built from request parameter",
			ConfidenceScore:    90,
			VulnerabilityTypes: []vulntype.VulnType{vulntype.SQLI},
		},
	}
}

func TestAggregateCountsOccurrencesAndRepositories(t *testing.T) {
	repos := []RepoResult{
		{Repo: Repo{Owner: "a", Name: "one"}, Findings: []report.Finding{sqlInjectionFinding("app.py"), sqlInjectionFinding("db.py")}},
		{Repo: Repo{Owner: "b", Name: "two"}, Findings: []report.Finding{sqlInjectionFinding("app.py")}},
	}

	variants := Aggregate(repos)
	if len(variants) != 1 {
		t.Fatalf("Aggregate() returned %d variants, want 1: %+v", len(variants), variants)
	}
	v := variants[0]
	if v.VulnType != "SQLI" {
		t.Errorf("VulnType = %q, want SQLI", v.VulnType)
	}
	if v.Occurrences != 3 {
		t.Errorf("Occurrences = %d, want 3", v.Occurrences)
	}
	if v.RepositoryCount != 2 {
		t.Errorf("RepositoryCount = %d, want 2", v.RepositoryCount)
	}
}

func TestAggregateEmptyInputProducesNoVariants(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Errorf("Aggregate(nil) = %+v, want empty", got)
	}
}

func TestMarkdownIncludesVariantsAndRepositories(t *testing.T) {
	results := &Results{
		Repos: []RepoResult{
			{Repo: Repo{Owner: "a", Name: "one"}, Findings: []report.Finding{sqlInjectionFinding("app.py")}},
			{Repo: Repo{Owner: "b", Name: "two"}, Err: "materialize failed"},
		},
		Variants: Aggregate([]RepoResult{{Repo: Repo{Owner: "a", Name: "one"}, Findings: []report.Finding{sqlInjectionFinding("app.py")}}}),
	}

	out := string(Markdown(results))
	for _, want := range []string{"a/one", "b/two", "materialize failed", "SQLI", "raw SQL built from request parameter"} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown() missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mvra-results.json")
	results := &Results{Variants: []VariantPattern{{VulnType: "SQLI", Occurrences: 1, RepositoryCount: 1}}}

	if err := WriteJSON(path, results); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "SQLI") {
		t.Errorf("written file missing SQLI: %s", data)
	}
}
