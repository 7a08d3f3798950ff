package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/diffsec/parsentry/internal/response"
)

// Markdown renders the per-file finding report: file info, vulnerability
// types, PAR tables, matched source, detailed analysis, PoC, remediation
// guidance, and analysis notes — in that order, matching the teacher's
// section-by-section Markdown export style.
func Markdown(r *response.Response) []byte {
	var b strings.Builder

	filePath := deref(r.FilePath)
	fmt.Fprintf(&b, "# セキュリティ分析レポート\n\n")

	fmt.Fprintf(&b, "## ファイル情報\n\n")
	fmt.Fprintf(&b, "- **ファイルパス**: `%s`\n", filePath)
	fmt.Fprintf(&b, "- **信頼度スコア**: %d\n", r.ConfidenceScore)
	fmt.Fprintf(&b, "- **深刻度**: %s\n\n", r.SeverityLevel())

	if desc := deref(r.PatternDescription); desc != "" {
		fmt.Fprintf(&b, "- **検出パターン**: %s\n\n", desc)
	}

	fmt.Fprintf(&b, "## 脆弱性タイプ\n\n")
	if len(r.VulnerabilityTypes) == 0 {
		b.WriteString("検出された脆弱性タイプはありません。\n\n")
	} else {
		for _, vt := range r.VulnerabilityTypes {
			fmt.Fprintf(&b, "- `%s`", vt.String())
			if cwes := vt.CWEIDs(); len(cwes) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(cwes, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	writePARTables(&b, r)

	if matched := deref(r.MatchedSourceCode); matched != "" {
		fmt.Fprintf(&b, "## マッチしたソースコード\n\n```\n%s\n```\n\n", matched)
	}

	fmt.Fprintf(&b, "## 詳細分析\n\n%s\n\n", orPlaceholder(r.Analysis))

	if r.PoC != "" {
		fmt.Fprintf(&b, "## 概念実証 (PoC)\n\n%s\n\n", r.PoC)
	}

	writeRemediation(&b, r)

	if r.Scratchpad != "" {
		fmt.Fprintf(&b, "## 分析ノート\n\n%s\n\n", r.Scratchpad)
	}

	return []byte(b.String())
}

func writePARTables(b *strings.Builder, r *response.Response) {
	par := r.ParAnalysis

	b.WriteString("## Principal / Action / Resource 分析\n\n")

	b.WriteString("### Principals\n\n")
	if len(par.Principals) == 0 {
		b.WriteString("なし\n\n")
	} else {
		b.WriteString("| Identifier | Trust Level | Source Context | Risk Factors |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, p := range par.Principals {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", p.Identifier, p.TrustLevel, p.SourceContext, strings.Join(p.RiskFactors, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("### Actions\n\n")
	if len(par.Actions) == 0 {
		b.WriteString("なし\n\n")
	} else {
		b.WriteString("| Identifier | Security Function | Quality | Weaknesses | Bypass Vectors |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, a := range par.Actions {
			fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", a.Identifier, a.SecurityFunction, a.ImplementationQuality,
				strings.Join(a.DetectedWeaknesses, ", "), strings.Join(a.BypassVectors, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("### Resources\n\n")
	if len(par.Resources) == 0 {
		b.WriteString("なし\n\n")
	} else {
		b.WriteString("| Identifier | Sensitivity | Operation | Protection Mechanisms |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, res := range par.Resources {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", res.Identifier, res.SensitivityLevel, res.OperationType, strings.Join(res.ProtectionMechanisms, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("### Policy Violations\n\n")
	if len(par.PolicyViolations) == 0 {
		b.WriteString("なし\n\n")
	} else {
		b.WriteString("| Rule ID | Description | Violation Path | Severity | Confidence |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, v := range par.PolicyViolations {
			fmt.Fprintf(b, "| %s | %s | %s | %s | %.2f |\n", v.RuleID, v.RuleDescription, v.ViolationPath, v.Severity, v.Confidence)
		}
		b.WriteString("\n")
	}
}

func writeRemediation(b *strings.Builder, r *response.Response) {
	actions := r.RemediationGuidance.PolicyEnforcement
	if len(actions) == 0 {
		return
	}
	b.WriteString("## 修正ガイダンス\n\n")
	b.WriteString("| Component | Required Improvement | Guidance | Priority |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, a := range actions {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", a.Component, a.RequiredImprovement, a.SpecificGuidance, a.Priority)
	}
	b.WriteString("\n")
}

// SummaryRow is one row of the cross-file summary table.
type SummaryRow struct {
	FilePath        string
	VulnTypes       []string
	ConfidenceScore int
	Severity        string
}

// Summary renders a sortable Markdown table across every finding in a scan,
// ordered by descending confidence score so the riskiest findings surface
// first.
func Summary(rows []SummaryRow) []byte {
	sorted := make([]SummaryRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ConfidenceScore > sorted[j].ConfidenceScore
	})

	var b strings.Builder
	b.WriteString("# 分析サマリー\n\n")
	fmt.Fprintf(&b, "検出された所見: %d件\n\n", len(sorted))
	b.WriteString("| File | Vulnerability Types | Confidence | Severity |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, row := range sorted {
		fmt.Fprintf(&b, "| `%s` | %s | %d | %s |\n", row.FilePath, strings.Join(row.VulnTypes, ", "), row.ConfidenceScore, row.Severity)
	}
	return []byte(b.String())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "分析結果はありません。"
	}
	return s
}
