package response

import (
	"testing"

	"github.com/diffsec/parsentry/internal/vulntype"
)

func TestNormalizeConfidenceScore(t *testing.T) {
	cases := map[int]int{5: 50, 10: 100, 50: 50, 0: 0}
	for in, want := range cases {
		if got := NormalizeConfidenceScore(in); got != want {
			t.Errorf("NormalizeConfidenceScore(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSeverityForScore(t *testing.T) {
	cases := map[int]string{95: "critical", 75: "high", 55: "medium", 35: "low", 10: "info"}
	for score, want := range cases {
		if got := SeverityForScore(score); got != want {
			t.Errorf("SeverityForScore(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestSanitizeDedupes(t *testing.T) {
	r := &Response{
		ConfidenceScore:    80,
		VulnerabilityTypes: []vulntype.VulnType{vulntype.SQLI, vulntype.SQLI},
	}
	r.Sanitize()
	if len(r.VulnerabilityTypes) != 1 {
		t.Errorf("expected 1 vuln type after dedup, got %d", len(r.VulnerabilityTypes))
	}
}

func TestSanitizeResetsConfidenceWithNoVulnTypes(t *testing.T) {
	r := &Response{ConfidenceScore: 80}
	r.Sanitize()
	if r.ConfidenceScore != 0 {
		t.Errorf("expected confidence reset to 0, got %d", r.ConfidenceScore)
	}
}

func TestSanitizeCapsConfidenceWithEmptyPAR(t *testing.T) {
	r := &Response{
		ConfidenceScore:    40,
		VulnerabilityTypes: []vulntype.VulnType{vulntype.XSS},
	}
	r.Sanitize()
	if r.ConfidenceScore != 30 {
		t.Errorf("expected confidence capped to 30, got %d", r.ConfidenceScore)
	}
}

func TestHasVulnerability(t *testing.T) {
	r := &Response{ConfidenceScore: 10, VulnerabilityTypes: []vulntype.VulnType{vulntype.RCE}}
	if !r.HasVulnerability() {
		t.Error("expected HasVulnerability true")
	}
	empty := &Response{}
	if empty.HasVulnerability() {
		t.Error("expected HasVulnerability false for empty response")
	}
}
