// Package callgraph builds a bounded call graph from a set of
// security-relevant seed functions, then uses it to narrow a large
// definition list down to the transitive closure worth sending to an LLM.
package callgraph

import (
	"fmt"

	"github.com/diffsec/parsentry/internal/grammar"
)

// color is a DFS coloring used for cycle detection: white = unvisited,
// gray = on the current path, black = fully explored.
type color int

const (
	white color = iota
	gray
	black
)

// Edge is one caller→callee edge recorded while building the graph.
type Edge struct {
	From string
	To   string
}

// Graph is the traversal result: every function name reached, the edges
// between them, and any gray→gray edges found when cycle detection is on.
type Graph struct {
	Nodes       map[string]bool
	Edges       []Edge
	Cycles      []Edge
	MaxDepth    int
	SeedNames   []string
}

// Config controls a single build: which functions to start from, how deep
// to go, and whether to record cycles.
type Config struct {
	StartFunctions []string
	MaxDepth       int
	DetectCycles   bool
}

// Builder walks a grammar.Session's loaded files, expanding from seed
// function names via FindDefinition/FindCalls.
type Builder struct {
	sess *grammar.Session
}

// NewBuilder wraps a parser session that already has every relevant file
// loaded via AddFile.
func NewBuilder(sess *grammar.Session) *Builder {
	return &Builder{sess: sess}
}

// frontierItem tracks a name along with the depth and file it was
// discovered at, so find_calls/find_definition can be repeated per file.
type frontierItem struct {
	name  string
	file  string
	depth int
}

// Build runs breadth-first expansion from cfg.StartFunctions, bounded by
// cfg.MaxDepth, optionally recording gray→gray cycle edges via a DFS
// coloring maintained alongside the BFS frontier.
func (b *Builder) Build(cfg Config) (*Graph, error) {
	g := &Graph{
		Nodes:     make(map[string]bool),
		MaxDepth:  cfg.MaxDepth,
		SeedNames: cfg.StartFunctions,
	}
	if len(cfg.StartFunctions) == 0 {
		return g, nil
	}

	colors := make(map[string]color)
	var queue []frontierItem
	for _, name := range cfg.StartFunctions {
		if g.Nodes[name] {
			continue
		}
		g.Nodes[name] = true
		colors[name] = gray
		queue = append(queue, frontierItem{name: name, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth >= cfg.MaxDepth {
			colors[item.name] = black
			continue
		}

		calls, err := b.sess.FindCalls(item.name)
		if err != nil {
			return nil, fmt.Errorf("find_calls(%s): %w", item.name, err)
		}

		for _, call := range calls {
			def, defErr := b.sess.FindDefinition(call.Name, call.FilePath)
			if defErr != nil || def == nil {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: item.name, To: def.Name})

			if cfg.DetectCycles && colors[def.Name] == gray {
				g.Cycles = append(g.Cycles, Edge{From: item.name, To: def.Name})
			}

			if g.Nodes[def.Name] {
				continue
			}
			g.Nodes[def.Name] = true
			colors[def.Name] = gray
			queue = append(queue, frontierItem{name: def.Name, file: def.FilePath, depth: item.depth + 1})
		}

		colors[item.name] = black
	}

	return g, nil
}

// FunctionReference is a compact (name, file, line) pointer used when an
// agent backend can read files itself and only needs a location.
type FunctionReference struct {
	Name       string
	FilePath   string
	LineNumber int
}

// ToLocationString renders "path:line name" for compact prompt embedding.
func (f FunctionReference) ToLocationString() string {
	return fmt.Sprintf("%s:%d %s", f.FilePath, f.LineNumber, f.Name)
}

// ToFileReferences converts definitions carrying a file path into compact
// location references, dropping definitions with no known file.
func ToFileReferences(defs []grammar.Definition) []FunctionReference {
	var out []FunctionReference
	for _, d := range defs {
		if d.FilePath == "" {
			continue
		}
		out = append(out, FunctionReference{Name: d.Name, FilePath: d.FilePath, LineNumber: d.LineNumber})
	}
	return out
}

// FilterByCallGraph narrows definitions down to the transitive closure of
// securityFunctions within maxDepth hops. An empty securityFunctions list
// is a no-op: every definition is kept, since there is nothing to anchor
// the closure to.
func FilterByCallGraph(sess *grammar.Session, definitions []grammar.Definition, securityFunctions []string, maxDepth int) ([]grammar.Definition, error) {
	if len(securityFunctions) == 0 {
		return definitions, nil
	}

	builder := NewBuilder(sess)
	graph, err := builder.Build(Config{
		StartFunctions: securityFunctions,
		MaxDepth:       maxDepth,
		DetectCycles:   false,
	})
	if err != nil {
		return nil, err
	}

	var filtered []grammar.Definition
	for _, def := range definitions {
		if graph.Nodes[def.Name] {
			filtered = append(filtered, def)
		}
	}
	return filtered, nil
}
