package export

import (
	"github.com/diffsec/parsentry/internal/finding"
	"github.com/diffsec/parsentry/internal/report"
)

// SARIFExporter exports persisted findings to SARIF format by reconstructing
// a response.Response per finding (see finding.Finding.ToResponse) and
// handing the batch to report.SARIF, the same writer a scan run uses — so a
// `finding export --format sarif` produces a log with the same rule/result
// shape as `scan --sarif`, rather than a second, drifting SARIF dialect.
type SARIFExporter struct{}

// NewSARIFExporter creates a new SARIF exporter
func NewSARIFExporter() *SARIFExporter {
	return &SARIFExporter{}
}

// Export exports findings to SARIF format
func (e *SARIFExporter) Export(findings []finding.Finding) ([]byte, error) {
	reportFindings := make([]report.Finding, 0, len(findings))
	for i := range findings {
		f := &findings[i]
		reportFindings = append(reportFindings, report.Finding{
			FilePath: f.Location.File,
			Response: f.ToResponse(),
		})
	}
	return report.SARIF(reportFindings, "")
}

// ContentType returns the MIME type for SARIF
func (e *SARIFExporter) ContentType() string {
	return "application/sarif+json"
}

// FileExtension returns the file extension for SARIF
func (e *SARIFExporter) FileExtension() string {
	return ".sarif"
}

// FormatName returns the format name
func (e *SARIFExporter) FormatName() string {
	return "sarif"
}
