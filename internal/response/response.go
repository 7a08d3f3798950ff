// Package response defines the raw per-match analysis payload an LLM
// backend produces, before it is converted into a persisted finding/export
// (see internal/finding) or rolled up into a report (see internal/report).
package response

import (
	"github.com/diffsec/parsentry/internal/par"
	"github.com/diffsec/parsentry/internal/vulntype"
)

// Response is the per-pattern-match analysis result an LLM backend returns.
// Its field names mirror the JSON schema given to the model, so a raw LLM
// JSON payload unmarshals into it directly once null fields have been
// coerced to their zero value (see internal/normalize).
type Response struct {
	Scratchpad          string              `json:"scratchpad"`
	Analysis             string             `json:"analysis"`
	PoC                  string             `json:"poc"`
	ConfidenceScore      int                `json:"confidence_score"`
	VulnerabilityTypes   []vulntype.VulnType `json:"vulnerability_types"`
	ParAnalysis          par.Analysis        `json:"par_analysis"`
	RemediationGuidance  par.Guidance        `json:"remediation_guidance"`
	FilePath             *string             `json:"file_path,omitempty"`
	PatternDescription   *string             `json:"pattern_description,omitempty"`
	MatchedSourceCode    *string             `json:"matched_source_code,omitempty"`
	FullSourceCode       *string             `json:"full_source_code,omitempty"`
}

// NormalizeConfidenceScore rescues scores reported on a legacy 1-10 scale by
// multiplying them by ten, then clamps to [0, 100] and snaps to the nearest
// multiple of 10 (87 -> 90), since models frequently report values outside
// the documented scale or off the 10-point grid.
func NormalizeConfidenceScore(score int) int {
	if score > 0 && score <= 10 {
		score *= 10
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return ((score + 5) / 10) * 10
}

// Sanitize dedupes vulnerability types and caps an unsupported confidence
// score: a high score with no vulnerability types, or no PAR analysis at
// all, is almost always a model failing to fill in the rest of the schema
// rather than a genuinely severe empty finding.
func (r *Response) Sanitize() {
	seen := make(map[vulntype.VulnType]bool, len(r.VulnerabilityTypes))
	deduped := r.VulnerabilityTypes[:0]
	for _, v := range r.VulnerabilityTypes {
		if seen[v] {
			continue
		}
		seen[v] = true
		deduped = append(deduped, v)
	}
	r.VulnerabilityTypes = deduped

	if len(r.VulnerabilityTypes) == 0 && r.ConfidenceScore > 50 {
		r.ConfidenceScore = 0
	}
	if r.ParAnalysis.IsEmpty() && r.ConfidenceScore > 30 {
		r.ConfidenceScore = 30
	}
}

// HasVulnerability reports whether this response indicates a real issue.
func (r *Response) HasVulnerability() bool {
	return len(r.VulnerabilityTypes) > 0 && r.ConfidenceScore > 0
}

// SeverityLevel buckets the confidence score into a human-facing severity band.
func (r *Response) SeverityLevel() string {
	return SeverityForScore(r.ConfidenceScore)
}

// SeverityForScore applies the fixed confidence-to-severity bands.
func SeverityForScore(score int) string {
	switch {
	case score >= 90 && score <= 100:
		return "critical"
	case score >= 70:
		return "high"
	case score >= 50:
		return "medium"
	case score >= 30:
		return "low"
	default:
		return "info"
	}
}

// JSONSchema returns the JSON schema enforced on LLM backends that support
// structured output, matching the shape Response unmarshals from.
func JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scratchpad": map[string]any{"type": "string"},
			"analysis":   map[string]any{"type": "string"},
			"poc":        map[string]any{"type": "string"},
			"confidence_score": map[string]any{"type": "integer"},
			"vulnerability_types": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []string{"LFI", "RCE", "SSRF", "AFO", "SQLI", "XSS", "IDOR"}},
			},
			"par_analysis": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"principals": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"identifier":      map[string]any{"type": "string"},
								"trust_level":     map[string]any{"type": "string", "enum": []string{"trusted", "semi_trusted", "untrusted"}},
								"source_context":  map[string]any{"type": "string"},
								"risk_factors":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							},
							"required": []string{"identifier", "trust_level", "source_context", "risk_factors"},
						},
					},
					"actions": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"identifier":              map[string]any{"type": "string"},
								"security_function":       map[string]any{"type": "string"},
								"implementation_quality":  map[string]any{"type": "string", "enum": []string{"adequate", "insufficient", "missing", "bypassed"}},
								"detected_weaknesses":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
								"bypass_vectors":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							},
							"required": []string{"identifier", "security_function", "implementation_quality", "detected_weaknesses", "bypass_vectors"},
						},
					},
					"resources": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"identifier":             map[string]any{"type": "string"},
								"sensitivity_level":      map[string]any{"type": "string", "enum": []string{"low", "medium", "high", "critical"}},
								"operation_type":         map[string]any{"type": "string"},
								"protection_mechanisms":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							},
							"required": []string{"identifier", "sensitivity_level", "operation_type", "protection_mechanisms"},
						},
					},
					"policy_violations": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"rule_id":           map[string]any{"type": "string"},
								"rule_description":  map[string]any{"type": "string"},
								"violation_path":    map[string]any{"type": "string"},
								"severity":          map[string]any{"type": "string"},
								"confidence":        map[string]any{"type": "number"},
							},
							"required": []string{"rule_id", "rule_description", "violation_path", "severity", "confidence"},
						},
					},
				},
				"required": []string{"principals", "actions", "resources", "policy_violations"},
			},
			"remediation_guidance": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"policy_enforcement": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"component":              map[string]any{"type": "string"},
								"required_improvement":   map[string]any{"type": "string"},
								"specific_guidance":      map[string]any{"type": "string"},
								"priority":               map[string]any{"type": "string"},
							},
							"required": []string{"component", "required_improvement", "specific_guidance", "priority"},
						},
					},
				},
				"required": []string{"policy_enforcement"},
			},
		},
		"required": []string{"scratchpad", "analysis", "poc", "confidence_score", "vulnerability_types", "par_analysis", "remediation_guidance"},
	}
}
