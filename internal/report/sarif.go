package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/diffsec/parsentry/internal/response"
	"github.com/diffsec/parsentry/internal/vulntype"
)

const (
	driverName = "Parsentry"
	schemaURI  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVer   = "2.1.0"
)

// ToolVersion is stamped into the SARIF driver; callers building a release
// binary can override it at link time.
var ToolVersion = "0.1.0"

// lineFromViolationPath extracts a 1-based line number from a
// policy_violation's violation_path by trying each pattern in order and
// using the first match — "line 42", "file.py:42:3", "@42", "[42]".
var violationPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:line|ln)[:\s]+(\d+)`),
	regexp.MustCompile(`:(\d+):(\d+)`),
	regexp.MustCompile(`@(\d+)`),
	regexp.MustCompile(`\[(\d+)\]`),
}

func lineFromViolationPath(path string) int {
	return LineFromViolationPath(path)
}

// LineFromViolationPath extracts a 1-based line number from a
// policy_violation's violation_path using the same four-pattern cascade SARIF
// region-building relies on; exported so other persisted-finding views (see
// internal/finding) can derive the same line number from the same path.
func LineFromViolationPath(path string) int {
	for _, re := range violationPathPatterns {
		if m := re.FindStringSubmatch(path); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool          `json:"tool"`
	Results           []sarifResult      `json:"results"`
	AutomationDetails *sarifAutomationDetails `json:"automationDetails,omitempty"`
}

type sarifAutomationDetails struct {
	ID string `json:"id"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name,omitempty"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	Properties       map[string]interface{} `json:"properties,omitempty"`
}

type sarifResult struct {
	RuleID      string                 `json:"ruleId"`
	RuleIndex   int                    `json:"ruleIndex"`
	Level       string                 `json:"level"`
	Message     sarifMessage           `json:"message"`
	Locations   []sarifLocation        `json:"locations,omitempty"`
	CodeFlows   []sarifCodeFlow        `json:"codeFlows,omitempty"`
	Fingerprints map[string]string     `json:"fingerprints,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

type sarifCodeFlow struct {
	ThreadFlows []sarifThreadFlow `json:"threadFlows"`
}

type sarifThreadFlow struct {
	Locations []sarifThreadFlowLocation `json:"locations"`
}

type sarifThreadFlowLocation struct {
	Location sarifLocation `json:"location"`
	Message  *sarifMessage `json:"message,omitempty"`
}

// Finding bundles one normalized response with the file it was found in, the
// input Sarif writer needs alongside the raw LLM Response.
type Finding struct {
	FilePath string
	Response *response.Response
}

// SARIF builds a SARIF 2.1.0 log for a batch of findings: one rule per
// distinct vulnerability kind, rule index matching array position, a line
// number scraped from each policy violation's path, and a stable
// fingerprint over (file_path, analysis) so re-scans can be diffed.
// runID, when non-empty, is stamped as the run's automationDetails.id so
// separate scan invocations of the same tree can be told apart in a
// SARIF-consuming dashboard.
func SARIF(findings []Finding, runID string) ([]byte, error) {
	ruleIndex := map[vulntype.VulnType]int{}
	var rules []sarifRule
	var results []sarifResult

	for _, f := range findings {
		for _, vt := range f.Response.VulnerabilityTypes {
			if _, ok := ruleIndex[vt]; !ok {
				ruleIndex[vt] = len(rules)
				rules = append(rules, buildRule(vt))
			}
		}
	}

	for _, f := range findings {
		results = append(results, buildResults(f, ruleIndex)...)
	}

	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:    driverName,
				Version: ToolVersion,
				Rules:   rules,
			},
		},
		Results: results,
	}
	if runID != "" {
		run.AutomationDetails = &sarifAutomationDetails{ID: runID}
	}

	log := sarifLog{
		Schema:  schemaURI,
		Version: sarifVer,
		Runs:    []sarifRun{run},
	}

	return json.MarshalIndent(log, "", "  ")
}

func buildRule(vt vulntype.VulnType) sarifRule {
	return sarifRule{
		ID:   string(vt),
		Name: string(vt),
		ShortDescription: sarifMessage{
			Text: string(vt),
		},
		Properties: map[string]interface{}{
			"cwe":          vt.CWEIDs(),
			"owasp":        vt.OWASPCategories(),
			"mitre_attack": vt.MitreAttackIDs(),
		},
	}
}

func buildResults(f Finding, ruleIndex map[vulntype.VulnType]int) []sarifResult {
	var out []sarifResult
	for _, vt := range f.Response.VulnerabilityTypes {
		idx, ok := ruleIndex[vt]
		if !ok {
			continue
		}
		out = append(out, sarifResult{
			RuleID:       string(vt),
			RuleIndex:    idx,
			Level:        severityToLevel(response.SeverityForScore(f.Response.ConfidenceScore)),
			Message:      sarifMessage{Text: f.Response.Analysis},
			Locations:    []sarifLocation{buildLocation(f)},
			CodeFlows:    buildCodeFlows(f),
			Fingerprints: map[string]string{"parsentry/v1": fingerprint(f.FilePath, f.Response.Analysis)},
			Properties: map[string]interface{}{
				"confidence_score": f.Response.ConfidenceScore,
			},
		})
	}
	return out
}

func buildLocation(f Finding) sarifLocation {
	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: f.FilePath},
		},
	}
	for _, v := range f.Response.ParAnalysis.PolicyViolations {
		if line := lineFromViolationPath(v.ViolationPath); line > 0 {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: line}
			break
		}
	}
	return loc
}

func buildCodeFlows(f Finding) []sarifCodeFlow {
	violations := f.Response.ParAnalysis.PolicyViolations
	if len(violations) == 0 {
		return nil
	}
	var locs []sarifThreadFlowLocation
	for _, v := range violations {
		region := (*sarifRegion)(nil)
		if line := lineFromViolationPath(v.ViolationPath); line > 0 {
			region = &sarifRegion{StartLine: line}
		}
		locs = append(locs, sarifThreadFlowLocation{
			Location: sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: f.FilePath},
					Region:           region,
				},
			},
			Message: &sarifMessage{Text: v.RuleDescription},
		})
	}
	return []sarifCodeFlow{{ThreadFlows: []sarifThreadFlow{{Locations: locs}}}}
}

func severityToLevel(severity string) string {
	switch severity {
	case "critical", "high":
		return "error"
	case "medium":
		return "warning"
	default:
		return "note"
	}
}

func fingerprint(filePath, analysis string) string {
	h := sha256.New()
	h.Write([]byte(filePath))
	h.Write([]byte{'|'})
	h.Write([]byte(analysis))
	return hex.EncodeToString(h.Sum(nil))
}
