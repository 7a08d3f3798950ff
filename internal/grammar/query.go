package grammar

import (
	"fmt"

	sitter "github.com/odvcencio/gotreesitter"

	"github.com/diffsec/parsentry/internal/language"
)

// queryMatch is one flattened tree-sitter match: the named capture that
// identifies the construct's kind (definition, direct_call, import, ...)
// plus the symbol name text associated with it.
type queryMatch struct {
	captureName string
	nameText    string
	startByte   uint32
	endByte     uint32
}

// queryCache memoizes the raw query source text per (language, kind) pair.
// Compiling a *sitter.Query is cheap relative to parsing, so this just
// avoids re-selecting the right string on every call.
type queryCache struct {
	bySelector map[string]string
}

func newQueryCache() *queryCache {
	return &queryCache{bySelector: make(map[string]string)}
}

func (c *queryCache) get(lang language.Language, kind string) (string, error) {
	key := string(lang) + "/" + kind
	if q, ok := c.bySelector[key]; ok {
		return q, nil
	}
	q, err := sourceFor(lang, kind)
	if err != nil {
		return "", err
	}
	c.bySelector[key] = q
	return q, nil
}

// sourceFor returns the tree-sitter query text for a (language, kind) pair.
// kind is "definitions" or "calls". Each pattern names its own capture, the
// way the grammar's vuln-patterns.yml-adjacent queries are written: a
// definition pattern tags the whole node @definition and its identifier
// @name; a call pattern tags the callee identifier directly with its kind
// (@direct_call, @method_call, @macro_call, @reference, @callback,
// @import, @assignment) since the callee identifier IS the name.
func sourceFor(lang language.Language, kind string) (string, error) {
	switch kind {
	case "definitions":
		return definitionQueries[lang], nonEmptyOrErr(definitionQueries[lang], lang, kind)
	case "calls":
		return callQueries[lang], nonEmptyOrErr(callQueries[lang], lang, kind)
	default:
		return "", fmt.Errorf("unknown query kind %q", kind)
	}
}

func nonEmptyOrErr(q string, lang language.Language, kind string) error {
	if q == "" {
		return fmt.Errorf("no %s query registered for language %s", kind, lang)
	}
	return nil
}

var definitionQueries = map[language.Language]string{
	language.Go: `
(function_declaration name: (identifier) @name) @definition
(method_declaration name: (field_identifier) @name) @definition
(type_spec name: (type_identifier) @name) @definition
`,
	language.Python: `
(function_definition name: (identifier) @name) @definition
(class_definition name: (identifier) @name) @definition
`,
	language.JavaScript: `
(function_declaration name: (identifier) @name) @definition
(method_definition name: (property_identifier) @name) @definition
(class_declaration name: (identifier) @name) @definition
(variable_declarator name: (identifier) @name value: (arrow_function)) @definition
`,
	language.TypeScript: `
(function_declaration name: (identifier) @name) @definition
(method_definition name: (property_identifier) @name) @definition
(class_declaration name: (type_identifier) @name) @definition
(interface_declaration name: (type_identifier) @name) @definition
`,
	language.Rust: `
(function_item name: (identifier) @name) @definition
(struct_item name: (type_identifier) @name) @definition
(impl_item type: (type_identifier) @name) @definition
`,
	language.Ruby: `
(method name: (identifier) @name) @definition
(class name: (constant) @name) @definition
`,
	language.C: `
(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition
`,
	language.Cpp: `
(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition
(class_specifier name: (type_identifier) @name) @definition
`,
	language.Php: `
(function_definition name: (name) @name) @definition
(method_declaration name: (name) @name) @definition
(class_declaration name: (name) @name) @definition
`,
	language.Terraform: `
(block (identifier) @name (string_lit)) @definition
`,
}

var callQueries = map[language.Language]string{
	language.Go: `
(call_expression function: (identifier) @direct_call)
(call_expression function: (selector_expression field: (field_identifier) @method_call))
(import_spec path: (interpreted_string_literal) @import)
(assignment_statement left: (expression_list (identifier) @assignment))
`,
	language.Python: `
(call function: (identifier) @direct_call)
(call function: (attribute attribute: (identifier) @method_call))
(import_statement name: (dotted_name) @import)
(import_from_statement module_name: (dotted_name) @import)
(assignment left: (identifier) @assignment)
`,
	language.JavaScript: `
(call_expression function: (identifier) @direct_call)
(call_expression function: (member_expression property: (property_identifier) @method_call))
(import_statement source: (string) @import)
(assignment_expression left: (identifier) @assignment)
(arguments (identifier) @callback)
`,
	language.TypeScript: `
(call_expression function: (identifier) @direct_call)
(call_expression function: (member_expression property: (property_identifier) @method_call))
(import_statement source: (string) @import)
(assignment_expression left: (identifier) @assignment)
(arguments (identifier) @callback)
`,
	language.Rust: `
(call_expression function: (identifier) @direct_call)
(call_expression function: (field_expression field: (field_identifier) @method_call))
(macro_invocation macro: (identifier) @macro_call)
(use_declaration argument: (identifier) @import)
`,
	language.Ruby: `
(call method: (identifier) @direct_call)
(call receiver: (_) method: (identifier) @method_call)
(assignment left: (identifier) @assignment)
`,
	language.C: `
(call_expression function: (identifier) @direct_call)
(preproc_include path: (_) @import)
`,
	language.Cpp: `
(call_expression function: (identifier) @direct_call)
(call_expression function: (field_expression field: (field_identifier) @method_call))
(preproc_include path: (_) @import)
`,
	language.Php: `
(function_call_expression function: (name) @direct_call)
(member_call_expression name: (name) @method_call)
`,
	language.Terraform: `
(function_call (identifier) @direct_call)
`,
}

// runQuery executes queryStr against tree's root node and flattens every
// match into one queryMatch per captured construct.
func runQuery(lang *sitter.Language, tree *sitter.Tree, source []byte, queryStr string) ([]queryMatch, error) {
	query, err := sitter.NewQuery([]byte(queryStr), lang)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	defer query.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, tree.RootNode())

	var out []queryMatch
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}

		var nameText, nameCapture string
		var defCapture *sitter.Node
		var soleCapture *sitter.Node
		var soleCaptureName string

		for _, cap := range match.Captures {
			capName := query.CaptureNameForId(cap.Index)
			node := cap.Node
			switch capName {
			case "name":
				nameText = node.Content(source)
				nameCapture = capName
			case "definition":
				n := node
				defCapture = &n
			default:
				n := node
				soleCapture = &n
				soleCaptureName = capName
			}
		}

		switch {
		case defCapture != nil && nameCapture != "":
			out = append(out, queryMatch{
				captureName: "definition",
				nameText:    nameText,
				startByte:   defCapture.StartByte(),
				endByte:     defCapture.EndByte(),
			})
		case soleCapture != nil:
			out = append(out, queryMatch{
				captureName: soleCaptureName,
				nameText:    soleCapture.Content(source),
				startByte:   soleCapture.StartByte(),
				endByte:     soleCapture.EndByte(),
			})
		}
	}
	return out, nil
}
