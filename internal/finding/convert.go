package finding

import (
	"fmt"
	"strings"

	"github.com/diffsec/parsentry/internal/par"
	"github.com/diffsec/parsentry/internal/report"
	"github.com/diffsec/parsentry/internal/response"
)

// FromResponse builds a persistable Finding out of one scan outcome. ID,
// CreatedAt, and UpdatedAt are left zero-valued for Store.Create to fill in.
func FromResponse(f report.Finding) *Finding {
	r := f.Response

	out := &Finding{
		Title:              title(r),
		Severity:           severityFromScore(r.ConfidenceScore),
		Confidence:         confidenceFromScore(r.ConfidenceScore),
		Status:             StatusOpen,
		CWE:                primaryCWE(r),
		Location:           locationFromResponse(f.FilePath, r),
		Description:        r.Analysis,
		Remediation:        remediationSummary(r),
		Tags:               vulnTags(r),
		VulnerabilityTypes: r.VulnerabilityTypes,
	}

	if ft := flowTraceFromResponse(r); ft != nil {
		out.FlowTrace = ft
	}

	return out
}

func title(r *response.Response) string {
	if len(r.VulnerabilityTypes) == 0 {
		return "Security finding"
	}
	names := make([]string, 0, len(r.VulnerabilityTypes))
	for _, vt := range r.VulnerabilityTypes {
		names = append(names, vt.String())
	}
	return strings.Join(names, "/") + " finding"
}

func severityFromScore(score int) Severity {
	switch response.SeverityForScore(score) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

func confidenceFromScore(score int) Confidence {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func primaryCWE(r *response.Response) string {
	for _, vt := range r.VulnerabilityTypes {
		if ids := vt.CWEIDs(); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}

func vulnTags(r *response.Response) []string {
	var tags []string
	for _, vt := range r.VulnerabilityTypes {
		tags = append(tags, strings.ToLower(vt.String()))
	}
	return tags
}

func remediationSummary(r *response.Response) string {
	actions := r.RemediationGuidance.PolicyEnforcement
	if len(actions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, a.SpecificGuidance)
	}
	return strings.Join(parts, "\n")
}

func locationFromResponse(filePath string, r *response.Response) Location {
	loc := Location{File: filePath}
	if r.MatchedSourceCode != nil {
		loc.Snippet = *r.MatchedSourceCode
	}
	for _, v := range r.ParAnalysis.PolicyViolations {
		if line := report.LineFromViolationPath(v.ViolationPath); line > 0 {
			loc.LineStart = line
			break
		}
	}
	return loc
}

// representativeScore maps a severity band back onto its band midpoint, for
// findings whose confidence_score was never persisted as a number.
var representativeScore = map[Severity]int{
	SeverityCritical: 95,
	SeverityHigh:      80,
	SeverityMedium:    60,
	SeverityLow:       40,
	SeverityInfo:      10,
}

// ToResponse reconstructs a response.Response from a persisted finding, so
// the SARIF exporter (see internal/finding/export) can hand it to
// report.SARIF instead of carrying its own duplicate SARIF builder.
// Reconstruction is lossy: fields the persisted Finding never stored
// (scratchpad, PoC, principal/action/resource detail) come back empty.
func (f *Finding) ToResponse() *response.Response {
	r := &response.Response{
		Analysis:           f.Description,
		ConfidenceScore:    representativeScore[f.Severity],
		VulnerabilityTypes: f.VulnerabilityTypes,
	}
	if f.Location.LineStart > 0 {
		r.ParAnalysis.PolicyViolations = []par.PolicyViolation{{
			RuleDescription: f.Title,
			ViolationPath:   fmt.Sprintf("%s line %d", f.Location.File, f.Location.LineStart),
			Severity:        string(f.Severity),
		}}
	}
	if f.Remediation != "" {
		r.RemediationGuidance.PolicyEnforcement = []par.RemediationAction{{
			SpecificGuidance: f.Remediation,
		}}
	}
	return r
}

func flowTraceFromResponse(r *response.Response) *FlowTrace {
	violations := r.ParAnalysis.PolicyViolations
	if len(r.ParAnalysis.Principals) == 0 && len(violations) == 0 {
		return nil
	}

	var source, sink string
	if len(r.ParAnalysis.Principals) > 0 {
		source = r.ParAnalysis.Principals[0].Identifier
	}
	if len(r.ParAnalysis.Resources) > 0 {
		sink = r.ParAnalysis.Resources[0].Identifier
	}
	if source == "" && sink == "" {
		return nil
	}

	var path []string
	unguarded := false
	for _, a := range r.ParAnalysis.Actions {
		path = append(path, a.Identifier+": "+a.SecurityFunction)
		if a.ImplementationQuality == "missing" || a.ImplementationQuality == "bypassed" {
			unguarded = true
		}
	}

	return &FlowTrace{
		Source:    source,
		Sink:      sink,
		Path:      path,
		Unguarded: unguarded,
	}
}
