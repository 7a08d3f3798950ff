package report

import (
	"strings"
	"testing"

	"github.com/diffsec/parsentry/internal/par"
	"github.com/diffsec/parsentry/internal/response"
	"github.com/diffsec/parsentry/internal/vulntype"
)

func TestMarkdownIncludesAllSections(t *testing.T) {
	path := "app/routes.py"
	matched := "eval(user_input)"
	r := &response.Response{
		Analysis:            "user input flows unsanitized into eval",
		PoC:                 "curl -d 'cmd=id' http://target/run",
		Scratchpad:          "traced via call graph",
		ConfidenceScore:      95,
		VulnerabilityTypes:   []vulntype.VulnType{vulntype.RCE},
		FilePath:             &path,
		MatchedSourceCode:    &matched,
		ParAnalysis: par.Analysis{
			Principals: []par.PrincipalInfo{{Identifier: "request.form", TrustLevel: par.Untrusted}},
			Actions:    []par.ActionInfo{{Identifier: "eval", ImplementationQuality: par.Missing}},
			Resources:  []par.ResourceInfo{{Identifier: "interpreter", SensitivityLevel: par.SensitivityCritical}},
			PolicyViolations: []par.PolicyViolation{
				{RuleID: "R1", ViolationPath: "routes.py:42:3", Severity: "critical", Confidence: 0.9},
			},
		},
		RemediationGuidance: par.Guidance{
			PolicyEnforcement: []par.RemediationAction{
				{Component: "input validation", RequiredImprovement: "allow-list", Priority: "immediate"},
			},
		},
	}

	out := string(Markdown(r))

	for _, want := range []string{
		"ファイル情報", "脆弱性タイプ", "Principal", "Action", "Resource",
		"マッチしたソースコード", "詳細分析", "概念実証", "修正ガイダンス", "分析ノート",
		"RCE", "eval(user_input)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestMarkdownSkipsEmptyOptionalSections(t *testing.T) {
	r := &response.Response{ConfidenceScore: 0}
	out := string(Markdown(r))
	if strings.Contains(out, "概念実証") {
		t.Error("expected no PoC section when PoC is empty")
	}
	if strings.Contains(out, "修正ガイダンス") {
		t.Error("expected no remediation section when no actions present")
	}
}

func TestSummarySortsByConfidenceDescending(t *testing.T) {
	rows := []SummaryRow{
		{FilePath: "a.py", ConfidenceScore: 40},
		{FilePath: "b.py", ConfidenceScore: 90},
		{FilePath: "c.py", ConfidenceScore: 60},
	}
	out := string(Summary(rows))

	ia := strings.Index(out, "a.py")
	ib := strings.Index(out, "b.py")
	ic := strings.Index(out, "c.py")
	if !(ib < ic && ic < ia) {
		t.Errorf("expected rows ordered b, c, a by descending confidence, got indices a=%d b=%d c=%d", ia, ib, ic)
	}
}
