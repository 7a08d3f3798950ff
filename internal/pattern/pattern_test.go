package pattern

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	reg, err := Load("/nonexistent/vuln-patterns.yml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	py, ok := reg["Python"]
	if !ok {
		t.Fatal("expected a Python entry in the default registry")
	}
	if len(py.Actions) == 0 {
		t.Error("expected at least one Python action pattern")
	}
	for _, a := range py.Actions {
		if a.Query == "" {
			t.Error("action pattern missing a query string")
		}
		if a.AttackVector == nil {
			t.Error("attack_vector should default to an empty slice, not nil")
		}
	}
}

func TestConfigUnmarshalRequiresQuery(t *testing.T) {
	var reg Registry
	badYAML := []byte("Python:\n  principals:\n    - description: missing query\n      attack_vector: []\n")
	if err := yaml.Unmarshal(badYAML, &reg); err == nil {
		t.Error("expected an error when neither definition nor reference is set")
	}
}
