package report

import (
	"encoding/json"
	"testing"

	"github.com/diffsec/parsentry/internal/par"
	"github.com/diffsec/parsentry/internal/response"
	"github.com/diffsec/parsentry/internal/vulntype"
)

func TestLineFromViolationPathTriesPatternsInOrder(t *testing.T) {
	cases := map[string]int{
		"line: 42":          42,
		"ln:7":              7,
		"routes.py:42:3":    42,
		"handler.go@99":     99,
		"stack[12]":         12,
		"no numbers here":   0,
	}
	for path, want := range cases {
		if got := lineFromViolationPath(path); got != want {
			t.Errorf("lineFromViolationPath(%q) = %d, want %d", path, got, want)
		}
	}
}

func TestSARIFRuleIndexMatchesArrayPosition(t *testing.T) {
	findings := []Finding{
		{FilePath: "a.py", Response: &response.Response{
			ConfidenceScore:    90,
			VulnerabilityTypes: []vulntype.VulnType{vulntype.SQLI},
			Analysis:           "sql injection in query builder",
		}},
		{FilePath: "b.py", Response: &response.Response{
			ConfidenceScore:    70,
			VulnerabilityTypes: []vulntype.VulnType{vulntype.XSS, vulntype.SQLI},
			Analysis:           "reflected xss",
		}},
	}

	out, err := SARIF(findings, "")
	if err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal(out, &log); err != nil {
		t.Fatal(err)
	}

	if log.Runs[0].Tool.Driver.Name != driverName {
		t.Errorf("expected driver name %q, got %q", driverName, log.Runs[0].Tool.Driver.Name)
	}
	if len(log.Runs[0].Tool.Driver.Rules) != 2 {
		t.Fatalf("expected 2 distinct rules (SQLI, XSS), got %d", len(log.Runs[0].Tool.Driver.Rules))
	}

	for _, result := range log.Runs[0].Results {
		var wantIndex int
		for i, rule := range log.Runs[0].Tool.Driver.Rules {
			if rule.ID == result.RuleID {
				wantIndex = i
			}
		}
		if result.RuleIndex != wantIndex {
			t.Errorf("ruleIndex %d does not match rule array position %d for %q", result.RuleIndex, wantIndex, result.RuleID)
		}
	}
}

func TestSARIFFingerprintStableForSameInput(t *testing.T) {
	f := Finding{FilePath: "a.py", Response: &response.Response{
		ConfidenceScore:    80,
		VulnerabilityTypes: []vulntype.VulnType{vulntype.RCE},
		Analysis:           "remote code execution",
		ParAnalysis: par.Analysis{
			PolicyViolations: []par.PolicyViolation{{ViolationPath: "a.py:10:2"}},
		},
	}}

	out1, _ := SARIF([]Finding{f}, "")
	out2, _ := SARIF([]Finding{f}, "")

	var log1, log2 sarifLog
	json.Unmarshal(out1, &log1)
	json.Unmarshal(out2, &log2)

	fp1 := log1.Runs[0].Results[0].Fingerprints["parsentry/v1"]
	fp2 := log2.Runs[0].Results[0].Fingerprints["parsentry/v1"]
	if fp1 == "" || fp1 != fp2 {
		t.Errorf("expected stable non-empty fingerprint, got %q and %q", fp1, fp2)
	}

	if log1.Runs[0].Results[0].Locations[0].PhysicalLocation.Region.StartLine != 10 {
		t.Errorf("expected region start line scraped from violation path, got %+v", log1.Runs[0].Results[0].Locations[0])
	}
}

func TestSARIFStampsAutomationDetailsWhenRunIDGiven(t *testing.T) {
	f := Finding{FilePath: "a.py", Response: &response.Response{ConfidenceScore: 80}}

	withID, err := SARIF([]Finding{f}, "scan-123")
	if err != nil {
		t.Fatal(err)
	}
	var logWithID sarifLog
	json.Unmarshal(withID, &logWithID)
	if logWithID.Runs[0].AutomationDetails == nil || logWithID.Runs[0].AutomationDetails.ID != "scan-123" {
		t.Errorf("expected automationDetails.id = scan-123, got %+v", logWithID.Runs[0].AutomationDetails)
	}

	withoutID, err := SARIF([]Finding{f}, "")
	if err != nil {
		t.Fatal(err)
	}
	var logNoID sarifLog
	json.Unmarshal(withoutID, &logNoID)
	if logNoID.Runs[0].AutomationDetails != nil {
		t.Errorf("expected no automationDetails when runID is empty, got %+v", logNoID.Runs[0].AutomationDetails)
	}
}
