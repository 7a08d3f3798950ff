// Package patterngen discovers security-relevant definitions and references
// across a repository, classifies them with an LLM into the
// principal/action/resource taxonomy, and merges the accepted results into
// a pattern registry — the pipeline that seeds internal/pattern's
// vuln-patterns.yml for a codebase with no existing query set.
package patterngen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/diffsec/parsentry/internal/backend"
	"github.com/diffsec/parsentry/internal/discovery"
	"github.com/diffsec/parsentry/internal/grammar"
	"github.com/diffsec/parsentry/internal/language"
	"github.com/diffsec/parsentry/internal/pattern"
)

const (
	// MaxFileLines excludes large files from candidate extraction —
	// definitions/references in a huge file carry proportionally less
	// signal per LLM token spent classifying them.
	MaxFileLines = 1000
	// MaxDefinitionsPerBatch caps how many definitions are classified in a
	// single LLM call.
	MaxDefinitionsPerBatch = 30
	// MaxReferencesPerBatch caps how many references are classified in a
	// single LLM call.
	MaxReferencesPerBatch = 50
	// MaxUniqueReferences is the point past which reference analysis is
	// skipped entirely for a language group: definitions carry more signal
	// per item, and a huge reference set is usually boilerplate calls.
	MaxUniqueReferences = 500
)

// item is one candidate symbol (a definition or a reference) awaiting
// classification.
type item struct {
	Name     string
	Source   string
	FilePath string
}

// Candidate is an accepted LLM classification for one symbol, validated and
// ready to merge into a pattern registry.
type Candidate struct {
	FunctionName string
	Kind         pattern.Kind
	Form         pattern.QueryForm
	Query        string
	Description  string
	AttackVector []string
}

type dedupeKey struct {
	name  string
	kind  pattern.Kind
	form  pattern.QueryForm
}

// Generator classifies definitions/references with an LLM backend.
type Generator struct {
	Backend backend.Backend
	Model   string
}

// New constructs a Generator.
func New(be backend.Backend, model string) *Generator {
	return &Generator{Backend: be, Model: model}
}

// Generate walks rootDir, extracts definitions and references per file
// (skipping files over MaxFileLines), groups them by language, classifies
// each language group's definitions and references in size-capped batches,
// and returns the deduplicated, validated candidates grouped by language
// display name.
func (g *Generator) Generate(ctx context.Context, rootDir string) (map[string][]Candidate, error) {
	files, err := discovery.Discover(rootDir)
	if err != nil {
		return nil, fmt.Errorf("discover files under %s: %w", rootDir, err)
	}

	defsByLang := map[language.Language][]item{}
	refsByLang := map[language.Language][]item{}

	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			continue
		}
		if countLines(data) > MaxFileLines {
			continue
		}
		lang := discovery.Classify(f.Path, string(data))
		if lang == language.Other {
			continue
		}

		sess := grammar.NewSession()
		if err := sess.AddFile(f.Path); err != nil {
			continue
		}
		fileCtx, err := sess.BuildContext(f.Path)
		if err != nil {
			continue
		}

		for _, d := range fileCtx.Definitions {
			defsByLang[lang] = append(defsByLang[lang], item{Name: d.Name, Source: d.Source, FilePath: d.FilePath})
		}
		for _, c := range fileCtx.References {
			src := sliceSource(data, c.StartByte, c.EndByte)
			refsByLang[lang] = append(refsByLang[lang], item{Name: c.Name, Source: src, FilePath: c.FilePath})
		}
	}

	out := map[string][]Candidate{}
	seenLangs := map[language.Language]bool{}
	for l := range defsByLang {
		seenLangs[l] = true
	}
	for l := range refsByLang {
		seenLangs[l] = true
	}

	for lang := range seenLangs {
		defs := defsByLang[lang]
		refs := refsByLang[lang]
		if len(defs) == 0 && len(refs) == 0 {
			continue
		}

		var all []Candidate

		for _, batch := range batchItems(defs, MaxDefinitionsPerBatch) {
			cands, err := g.classifyBatch(ctx, lang, pattern.FormDefinition, batch)
			if err != nil {
				continue
			}
			all = append(all, cands...)
		}

		if uniqueNames(refs) <= MaxUniqueReferences {
			for _, batch := range batchItems(refs, MaxReferencesPerBatch) {
				cands, err := g.classifyBatch(ctx, lang, pattern.FormReference, batch)
				if err != nil {
					continue
				}
				all = append(all, cands...)
			}
		}

		deduped := dedupeCandidates(all)
		if len(deduped) > 0 {
			out[lang.DisplayName()] = deduped
		}
	}

	return out, nil
}

// MergeInto folds newly generated candidates into reg, grouping each into
// its language's principal/action/resource list. Existing entries for the
// same language are preserved; new candidates are appended.
func MergeInto(reg pattern.Registry, byLang map[string][]Candidate) pattern.Registry {
	if reg == nil {
		reg = pattern.Registry{}
	}
	for langName, candidates := range byLang {
		lp := reg[langName]
		for _, c := range candidates {
			cfg := pattern.Config{
				Form:         c.Form,
				Query:        c.Query,
				Description:  c.Description,
				AttackVector: c.AttackVector,
			}
			switch c.Kind {
			case pattern.Principal:
				lp.Principals = append(lp.Principals, cfg)
			case pattern.Action:
				lp.Actions = append(lp.Actions, cfg)
			case pattern.Resource:
				lp.Resources = append(lp.Resources, cfg)
			}
		}
		reg[langName] = lp
	}
	return reg
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	return bytes.Count(data, []byte("\n")) + 1
}

func sliceSource(data []byte, start, end uint32) string {
	if int(end) > len(data) || start > end {
		return ""
	}
	return string(data[start:end])
}

func uniqueNames(items []item) int {
	seen := map[string]bool{}
	for _, it := range items {
		seen[it.Name] = true
	}
	return len(seen)
}

func batchItems(items []item, size int) [][]item {
	if len(items) == 0 {
		return nil
	}
	var out [][]item
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

var capturePattern = regexp.MustCompile(`@[A-Za-z_][A-Za-z0-9_]*`)

// validQuery enforces spec.md's acceptance invariant: balanced parentheses
// and at least one @capture.
func validQuery(q string) bool {
	depth := 0
	for _, r := range q {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	if depth != 0 {
		return false
	}
	return capturePattern.MatchString(q)
}

type classifyResponse struct {
	Patterns []struct {
		Classification string   `json:"classification"`
		FunctionName   string   `json:"function_name"`
		QueryType      string   `json:"query_type"`
		Query          string   `json:"query"`
		Description    string   `json:"description"`
		Reasoning      string   `json:"reasoning"`
		AttackVector   []string `json:"attack_vector"`
	} `json:"patterns"`
}

func (g *Generator) classifyBatch(ctx context.Context, lang language.Language, form pattern.QueryForm, items []item) ([]Candidate, error) {
	p := renderClassifyPrompt(lang, form, items)

	raw, err := g.Backend.ExecuteWithRetry(ctx, p, 2)
	if err != nil {
		return nil, err
	}

	parsed, err := extractPatternsJSON(raw)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, p := range parsed.Patterns {
		kind, ok := parseKind(p.Classification)
		if !ok {
			continue
		}
		if !validQuery(p.Query) {
			continue
		}
		out = append(out, Candidate{
			FunctionName: p.FunctionName,
			Kind:         kind,
			Form:         form,
			Query:        p.Query,
			Description:  p.Description,
			AttackVector: p.AttackVector,
		})
	}
	return out, nil
}

func parseKind(s string) (pattern.Kind, bool) {
	switch s {
	case "principals":
		return pattern.Principal, true
	case "actions":
		return pattern.Action, true
	case "resources":
		return pattern.Resource, true
	default:
		return "", false
	}
}

// extractPatternsJSON tries the whole reply, then its first-'{'-to-last-'}'
// substring: a shorter form of the fallback chain normalize.Parse applies to
// analysis responses (it has no fenced-block step), since
// pattern-classification replies come from the same backends and show the
// same fencing quirks.
func extractPatternsJSON(raw string) (*classifyResponse, error) {
	candidates := []string{strings.TrimSpace(raw)}
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}
	var lastErr error
	for _, c := range candidates {
		var resp classifyResponse
		if err := json.Unmarshal([]byte(c), &resp); err == nil {
			return &resp, nil
		} else {
			lastErr = err
		}
	}
	return nil, fmt.Errorf("parse pattern classification response: %w", lastErr)
}

func dedupeCandidates(in []Candidate) []Candidate {
	seen := map[dedupeKey]bool{}
	var out []Candidate
	for _, c := range in {
		key := dedupeKey{name: c.FunctionName, kind: c.Kind, form: c.Form}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func renderClassifyPrompt(lang language.Language, form pattern.QueryForm, items []item) string {
	var b strings.Builder
	noun := "definitions"
	captureHint := "add @function capture to the entire function/method definition"
	if form == pattern.FormReference {
		noun = "references/calls"
		captureHint = "add @call capture to the entire call expression"
	}

	fmt.Fprintf(&b, "Analyze these %s from a %s codebase and classify each as principals, actions, resources, or none.\n\n", noun, lang.DisplayName())
	singular := noun[:len(noun)-1]
	label := strings.ToUpper(singular[:1]) + singular[1:]
	for i, it := range items {
		fmt.Fprintf(&b, "%s %d: %s\nCode:\n%s\n\n", label, i+1, it.Name, it.Source)
	}

	fmt.Fprintf(&b, `Classification guidelines:
- "principals": untrusted data entry points (user input, request params, file reads, network responses)
- "actions": validation, sanitization, authorization, or other security-relevant controls
- "resources": operations that touch files, databases, networks, or system commands
- "none": not a security pattern

Generate a tree-sitter query for each accepted symbol and %s. Return strict JSON:

{"patterns": [{"classification": "principals|actions|resources|none", "function_name": "...", "query_type": "%s", "query": "...", "description": "...", "reasoning": "...", "attack_vector": ["..."]}]}

Every query must have balanced parentheses and at least one @capture, or it will be rejected.`, captureHint, string(form))

	return b.String()
}
