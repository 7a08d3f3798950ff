// Package report renders per-file Markdown findings, a summary table, and a
// SARIF 2.1.0 log from a batch of analysis results.
package report

import (
	"path/filepath"
	"strings"
)

var filenameReplacer = strings.NewReplacer(
	"..", "dotdot",
	string(filepath.Separator), "-",
	"/", "-",
	"\\", "-",
	":", "_",
	"*", "_",
	"?", "_",
	"<", "_",
	">", "_",
	"|", "_",
	`"`, "_",
)

// OutputFilename builds a unique, filesystem-safe Markdown filename for a
// finding on filePath, relative to root: separators become hyphens, ".."
// becomes "dotdot", and characters dangerous on Windows filesystems become
// underscores. Uniqueness comes from the stem carrying the whole relative
// path, so two files with the same base name never collide.
func OutputFilename(filePath, root string) string {
	rel := filePath
	if r, err := filepath.Rel(root, filePath); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	return filenameReplacer.Replace(filepath.ToSlash(rel)) + ".md"
}

// PatternSpecificFilename appends a slug of patternDescription to the base
// OutputFilename, for reports split per matched pattern rather than per file.
func PatternSpecificFilename(filePath, root, patternDescription string) string {
	base := strings.TrimSuffix(OutputFilename(filePath, root), ".md")
	slug := slugify(patternDescription)
	return base + "-" + slug + ".md"
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(
		" ", "-", "_", "-", "/", "-", "\\", "-",
		"(", "-", ")", "-", "&", "-", ".", "-", ",", "-", ":", "-", ";", "-",
	).Replace(s)

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	parts := strings.Split(b.String(), "-")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "pattern"
	}
	return strings.Join(out, "-")
}
