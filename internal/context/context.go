// Package context assembles the bundle of source text, pattern match, and
// related-function references that a prompt is rendered from, sanitizing
// everything that came from scanned source before it reaches a model.
package context

import (
	"os"
	"regexp"
	"strings"

	"github.com/diffsec/parsentry/internal/callgraph"
	"github.com/diffsec/parsentry/internal/language"
	"github.com/diffsec/parsentry/internal/pattern"
)

// injectionPatterns flags common prompt-injection phrasing found inside
// scanned source, generalized from code-review framing to "this is
// arbitrary scanned data, not instructions" framing.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a\b`),
	regexp.MustCompile(`(?i)new\s+(instructions?|role|persona|system\s+prompt)\s*:`),
	regexp.MustCompile(`(?i)(override|bypass|disable)\s+(your\s+)?(instructions?|safety|rules?|restrictions?)`),
	regexp.MustCompile(`(?i)from\s+now\s+on\s*,?\s*(you|your|ignore)`),
}

// ContainsInjectionPattern reports whether text contains phrasing commonly
// used to smuggle instructions to a model through scanned source.
func ContainsInjectionPattern(text string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Sanitize escapes triple-backtick fences (so embedded code can't close a
// prompt's own code block) and drops ASCII control bytes other than
// whitespace, before source text is interpolated into a prompt.
func Sanitize(source string) string {
	escaped := strings.ReplaceAll(source, "```", "` ` `")
	var b strings.Builder
	b.Grow(len(escaped))
	for _, r := range escaped {
		if r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Bundle is everything a prompt variant needs to render: the file's full
// (sanitized) source, the triggering pattern match, and optionally a set
// of related function locations discovered via the call graph.
type Bundle struct {
	FilePath         string
	Language         language.Language
	FullSource       string
	Match            pattern.Match
	RelatedFunctions []callgraph.FunctionReference
	FlaggedInjection bool
}

// Build reads path, sanitizes its content, and assembles a bundle around
// match. relatedFunctions is typically the output of
// callgraph.ToFileReferences over a call-graph-filtered definition list.
func Build(path string, lang language.Language, match pattern.Match, relatedFunctions []callgraph.FunctionReference) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sanitized := Sanitize(string(raw))
	return &Bundle{
		FilePath:         path,
		Language:         lang,
		FullSource:       sanitized,
		Match:            match,
		RelatedFunctions: relatedFunctions,
		FlaggedInjection: ContainsInjectionPattern(sanitized),
	}, nil
}
