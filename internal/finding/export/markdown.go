package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/diffsec/parsentry/internal/finding"
)

// MarkdownExporter exports findings to Markdown format
type MarkdownExporter struct {
	toolName    string
	toolVersion string
	projectName string
}

// NewMarkdownExporter creates a new Markdown exporter
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{
		toolName:    "Parsentry",
		toolVersion: "1.0.0",
	}
}

// SetProjectName sets the project name for the report
func (e *MarkdownExporter) SetProjectName(name string) {
	e.projectName = name
}

// Export exports findings to Markdown format
func (e *MarkdownExporter) Export(findings []finding.Finding) ([]byte, error) {
	var b strings.Builder

	title := "Security Findings Report"
	if e.projectName != "" {
		title = fmt.Sprintf("Security Findings Report: %s", e.projectName)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated by %s v%s on %s\n\n", e.toolName, e.toolVersion, time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Total Findings:** %d\n\n", len(findings))

	severityCounts := make(map[string]int)
	for _, f := range findings {
		severityCounts[string(f.Severity)]++
	}
	b.WriteString("| Severity | Count |\n")
	b.WriteString("|---|---|\n")
	for _, sev := range finding.ValidSeverities {
		if count := severityCounts[string(sev)]; count > 0 {
			fmt.Fprintf(&b, "| %s | %d |\n", sev, count)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Findings\n\n")
	for _, f := range findings {
		e.renderFinding(&b, f)
	}

	return []byte(b.String()), nil
}

func (e *MarkdownExporter) renderFinding(b *strings.Builder, f finding.Finding) {
	fmt.Fprintf(b, "### [%s] %s (`%s`)\n\n", strings.ToUpper(string(f.Severity)), f.Title, f.ID)
	fmt.Fprintf(b, "- **Status:** %s\n", f.Status)
	fmt.Fprintf(b, "- **Confidence:** %s\n", f.Confidence)
	if f.CWE != "" {
		fmt.Fprintf(b, "- **CWE:** %s\n", f.CWE)
	}
	if len(f.VulnerabilityTypes) > 0 {
		names := make([]string, len(f.VulnerabilityTypes))
		for i, vt := range f.VulnerabilityTypes {
			names[i] = vt.String()
		}
		fmt.Fprintf(b, "- **Vulnerability Types:** %s\n", strings.Join(names, ", "))
	}
	if owasp := f.OWASPCategories(); len(owasp) > 0 {
		fmt.Fprintf(b, "- **OWASP:** %s\n", strings.Join(owasp, ", "))
	}
	if f.CVSS != nil {
		fmt.Fprintf(b, "- **CVSS:** %.1f (%s)\n", f.CVSS.Score, f.CVSS.Vector)
	}
	loc := f.Location.File
	if f.Location.LineStart > 0 {
		if f.Location.LineEnd > 0 && f.Location.LineEnd != f.Location.LineStart {
			loc += fmt.Sprintf(":%d-%d", f.Location.LineStart, f.Location.LineEnd)
		} else {
			loc += fmt.Sprintf(":%d", f.Location.LineStart)
		}
	}
	fmt.Fprintf(b, "- **Location:** `%s`\n\n", loc)

	if f.Location.Snippet != "" {
		fmt.Fprintf(b, "```\n%s\n```\n\n", f.Location.Snippet)
	}
	if f.Description != "" {
		fmt.Fprintf(b, "**Description**\n\n%s\n\n", f.Description)
	}
	if f.Impact != "" {
		fmt.Fprintf(b, "**Impact**\n\n%s\n\n", f.Impact)
	}
	if f.Remediation != "" {
		fmt.Fprintf(b, "**Remediation**\n\n%s\n\n", f.Remediation)
	}
	if len(f.Tags) > 0 {
		fmt.Fprintf(b, "**Tags:** %s\n\n", strings.Join(f.Tags, ", "))
	}
	b.WriteString("---\n\n")
}

// ContentType returns the MIME type for Markdown
func (e *MarkdownExporter) ContentType() string {
	return "text/markdown"
}

// FileExtension returns the file extension for Markdown
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// FormatName returns the format name
func (e *MarkdownExporter) FormatName() string {
	return "markdown"
}
