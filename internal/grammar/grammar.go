// Package grammar implements tree-sitter-backed definition and call-site
// lookups: the "parser session" that C4 (pattern matching), C5 (call-graph
// building), and C6 (context assembly) all sit on top of.
package grammar

import (
	"fmt"
	"os"
	"sort"
	"strings"

	sitter "github.com/odvcencio/gotreesitter"

	"github.com/diffsec/parsentry/internal/language"
)

// Definition is one named symbol definition found in a source file.
type Definition struct {
	Name       string
	StartByte  uint32
	EndByte    uint32
	Source     string
	FilePath   string
	LineNumber int
}

// CallSite is one call/reference/import/assignment match for a symbol.
type CallSite struct {
	Name      string
	FilePath  string
	StartByte uint32
	EndByte   uint32
	Capture   string // one of direct_call, method_call, macro_call, reference, callback, import, assignment
}

// Context is the fixed-point result of expanding a start file's definitions
// and their transitive call references.
type Context struct {
	Definitions []Definition
	References  []CallSite
}

// validCallCaptures are the only capture names find_calls recognizes.
var validCallCaptures = map[string]bool{
	"direct_call": true, "method_call": true, "macro_call": true,
	"reference": true, "callback": true, "import": true, "assignment": true,
}

// Session holds every file added so far plus compiled queries, and answers
// definition/call-site lookups across the whole loaded set.
type Session struct {
	files     map[string][]byte
	fileLangs map[string]language.Language
	queries   *queryCache
}

// NewSession returns an empty parser session.
func NewSession() *Session {
	return &Session{
		files:     make(map[string][]byte),
		fileLangs: make(map[string]language.Language),
		queries:   newQueryCache(),
	}
}

// AddFile loads and caches a file's bytes for later queries.
func (s *Session) AddFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	s.files[path] = data
	s.fileLangs[path] = language.FromFilename(path)
	return nil
}

// validateSymbolName rejects path separators and ".." the way spec.md's
// input-validation note requires, since symbol names flow into query
// construction and file lookups.
func validateSymbolName(name string) error {
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid symbol name %q", name)
	}
	return nil
}

// sitterLanguage maps a language.Language to the tree-sitter grammar used
// to parse it. Languages with no grammar binding (e.g. Other) return nil,
// false.
func sitterLanguage(lang language.Language) (*sitter.Language, bool) {
	switch lang {
	case language.C:
		return sitter.LanguageC(), true
	case language.Cpp:
		return sitter.LanguageCpp(), true
	case language.Python:
		return sitter.LanguagePython(), true
	case language.JavaScript:
		return sitter.LanguageJavaScript(), true
	case language.TypeScript:
		return sitter.LanguageTypeScript(), true
	case language.Java:
		return sitter.LanguageJava(), true
	case language.Rust:
		return sitter.LanguageRust(), true
	case language.Go:
		return sitter.LanguageGo(), true
	case language.Ruby:
		return sitter.LanguageRuby(), true
	case language.Terraform:
		return sitter.LanguageHCL(), true
	case language.Php:
		return sitter.LanguagePHP(), true
	default:
		return nil, false
	}
}

func (s *Session) parse(path string) (*sitter.Tree, *sitter.Language, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, nil, fmt.Errorf("file not loaded: %s", path)
	}
	lang, ok := sitterLanguage(s.fileLangs[path])
	if !ok {
		return nil, nil, fmt.Errorf("no grammar for file: %s", path)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseString(nil, data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, lang, nil
}

// AdHocMatch is one capture produced by a caller-supplied query string, as
// used by the pattern registry's principal/action/resource queries.
type AdHocMatch struct {
	Text      string
	StartByte uint32
	EndByte   uint32
}

// RunAdHocQuery validates and runs a caller-supplied query string (e.g. a
// pattern registry entry) against sourceFile, which must already be loaded.
// Each resulting capture becomes one AdHocMatch; the whole matched span's
// text is preserved (not just the identifier) per the pattern registry's
// context-preservation requirement.
func (s *Session) RunAdHocQuery(sourceFile, queryStr string) ([]AdHocMatch, error) {
	if len(queryStr) == 0 {
		return nil, fmt.Errorf("empty query string")
	}
	if strings.Contains(queryStr, "..") {
		return nil, fmt.Errorf("query string must not contain '..'")
	}
	tree, lang, err := s.parse(sourceFile)
	if err != nil {
		return nil, err
	}
	matches, err := runQuery(lang, tree, s.files[sourceFile], queryStr)
	if err != nil {
		return nil, err
	}
	out := make([]AdHocMatch, 0, len(matches))
	for _, m := range matches {
		data := s.files[sourceFile]
		out = append(out, AdHocMatch{
			Text:      string(data[m.startByte:m.endByte]),
			StartByte: m.startByte,
			EndByte:   m.endByte,
		})
	}
	return out, nil
}

// FindDefinition looks up name's definition within a single file.
func (s *Session) FindDefinition(name, sourceFile string) (*Definition, error) {
	if err := validateSymbolName(name); err != nil {
		return nil, err
	}
	tree, lang, err := s.parse(sourceFile)
	if err != nil {
		return nil, err
	}
	queryStr, err := s.queries.get(s.fileLangs[sourceFile], "definitions")
	if err != nil {
		return nil, err
	}
	matches, err := runQuery(lang, tree, s.files[sourceFile], queryStr)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.nameText == name && m.captureName == "definition" {
			data := s.files[sourceFile]
			line := 1
			for i := uint32(0); i < m.startByte && int(i) < len(data); i++ {
				if data[i] == '\n' {
					line++
				}
			}
			return &Definition{
				Name:       name,
				StartByte:  m.startByte,
				EndByte:    m.endByte,
				Source:     string(data[m.startByte:m.endByte]),
				FilePath:   sourceFile,
				LineNumber: line,
			}, nil
		}
	}
	return nil, nil
}

// FindCalls looks up every call site for name across every loaded file.
// Files that fail to parse or query are skipped without logging; the other
// files are still searched.
func (s *Session) FindCalls(name string) ([]CallSite, error) {
	if err := validateSymbolName(name); err != nil {
		return nil, err
	}
	var out []CallSite
	for path := range s.files {
		tree, lang, err := s.parse(path)
		if err != nil {
			continue
		}
		queryStr, err := s.queries.get(s.fileLangs[path], "calls")
		if err != nil {
			continue
		}
		matches, err := runQuery(lang, tree, s.files[path], queryStr)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if m.nameText != name || !validCallCaptures[m.captureName] {
				continue
			}
			out = append(out, CallSite{
				Name:      name,
				FilePath:  path,
				StartByte: m.startByte,
				EndByte:   m.endByte,
				Capture:   m.captureName,
			})
		}
	}
	return out, nil
}

// FindBidirectional combines FindDefinition and FindCalls, sorted and
// deduplicated by (path, start byte).
func (s *Session) FindBidirectional(name, sourceFile string) ([]Definition, []CallSite, error) {
	def, err := s.FindDefinition(name, sourceFile)
	if err != nil {
		return nil, nil, err
	}
	calls, err := s.FindCalls(name)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].FilePath != calls[j].FilePath {
			return calls[i].FilePath < calls[j].FilePath
		}
		return calls[i].StartByte < calls[j].StartByte
	})
	deduped := calls[:0]
	for _, c := range calls {
		if n := len(deduped); n > 0 && deduped[n-1].FilePath == c.FilePath && deduped[n-1].StartByte == c.StartByte {
			continue
		}
		deduped = append(deduped, c)
	}
	var defs []Definition
	if def != nil {
		defs = append(defs, *def)
	}
	return defs, deduped, nil
}

// BuildContext parses startPath, collects its definitions and references,
// then follows every discovered call name transitively across all loaded
// files until no new names appear — the fixed-point described in C3.
func (s *Session) BuildContext(startPath string) (*Context, error) {
	if _, ok := s.files[startPath]; !ok {
		if err := s.AddFile(startPath); err != nil {
			return nil, err
		}
	}

	tree, lang, err := s.parse(startPath)
	if err != nil {
		return nil, err
	}
	defQuery, err := s.queries.get(s.fileLangs[startPath], "definitions")
	if err != nil {
		return nil, err
	}
	defMatches, err := runQuery(lang, tree, s.files[startPath], defQuery)
	if err != nil {
		return nil, err
	}

	seenDefs := make(map[string]bool)
	ctx := &Context{}
	var worklist []string

	data := s.files[startPath]
	for _, m := range defMatches {
		if m.captureName != "definition" || seenDefs[m.nameText] {
			continue
		}
		seenDefs[m.nameText] = true
		line := 1
		for i := uint32(0); i < m.startByte && int(i) < len(data); i++ {
			if data[i] == '\n' {
				line++
			}
		}
		ctx.Definitions = append(ctx.Definitions, Definition{
			Name: m.nameText, StartByte: m.startByte, EndByte: m.endByte,
			Source: string(data[m.startByte:m.endByte]), FilePath: startPath, LineNumber: line,
		})
		worklist = append(worklist, m.nameText)
	}

	callQuery, err := s.queries.get(s.fileLangs[startPath], "calls")
	if err == nil {
		callMatches, cErr := runQuery(lang, tree, s.files[startPath], callQuery)
		if cErr == nil {
			for _, m := range callMatches {
				if !validCallCaptures[m.captureName] {
					continue
				}
				ctx.References = append(ctx.References, CallSite{
					Name: m.nameText, FilePath: startPath,
					StartByte: m.startByte, EndByte: m.endByte, Capture: m.captureName,
				})
			}
		}
	}

	for len(worklist) > 0 {
		name := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		calls, err := s.FindCalls(name)
		if err != nil {
			continue
		}
		for _, call := range calls {
			def, err := s.FindDefinition(call.Name, call.FilePath)
			if err != nil || def == nil || seenDefs[def.Name] {
				continue
			}
			seenDefs[def.Name] = true
			ctx.Definitions = append(ctx.Definitions, *def)
			worklist = append(worklist, def.Name)
		}
	}

	return ctx, nil
}
