package callgraph

import (
	"testing"

	"github.com/diffsec/parsentry/internal/grammar"
)

func TestToLocationString(t *testing.T) {
	ref := FunctionReference{Name: "validateInput", FilePath: "/src/validator.go", LineNumber: 42}
	want := "/src/validator.go:42 validateInput"
	if got := ref.ToLocationString(); got != want {
		t.Errorf("ToLocationString() = %q, want %q", got, want)
	}
}

func TestToFileReferencesSkipsMissingPath(t *testing.T) {
	defs := []grammar.Definition{
		{Name: "a", FilePath: "/src/a.go", LineNumber: 1},
		{Name: "b", FilePath: "", LineNumber: 2},
	}
	refs := ToFileReferences(defs)
	if len(refs) != 1 || refs[0].Name != "a" {
		t.Errorf("expected only the definition with a file path, got %+v", refs)
	}
}

func TestBuildEmptySeedsReturnsEmptyGraph(t *testing.T) {
	sess := grammar.NewSession()
	b := NewBuilder(sess)
	g, err := b.Build(Config{StartFunctions: nil, MaxDepth: 5})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes) != 0 {
		t.Errorf("expected no nodes for empty seed list, got %d", len(g.Nodes))
	}
}

func TestFilterByCallGraphNoSecurityFunctionsIsNoOp(t *testing.T) {
	sess := grammar.NewSession()
	defs := []grammar.Definition{{Name: "a"}, {Name: "b"}}
	filtered, err := FilterByCallGraph(sess, defs, nil, 5)
	if err != nil {
		t.Fatalf("FilterByCallGraph: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("expected all definitions kept when no security functions given, got %d", len(filtered))
	}
}
