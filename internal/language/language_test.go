package language

import "testing"

func TestFromExtension(t *testing.T) {
	cases := map[string]Language{
		"py":     Python,
		"js":     JavaScript,
		"tsx":    TypeScript,
		"rs":     Rust,
		"go":     Go,
		"h":      C,
		"hpp":    Cpp,
		"tf":     Terraform,
		"yaml":   Yaml,
		"php":    Php,
		"phtml":  Php,
		"zzzzzz": Other,
	}
	for ext, want := range cases {
		if got := FromExtension(ext); got != want {
			t.Errorf("FromExtension(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestFromFilename(t *testing.T) {
	if got := FromFilename("app.tsx"); got != TypeScript {
		t.Errorf("FromFilename(app.tsx) = %v, want TypeScript", got)
	}
	if got := FromFilename("noext"); got != Other {
		t.Errorf("FromFilename(noext) = %v, want Other", got)
	}
}

func TestIsIAC(t *testing.T) {
	if !Terraform.IsIAC() {
		t.Error("Terraform should be IaC")
	}
	if Python.IsIAC() {
		t.Error("Python should not be IaC")
	}
}

func TestDisplayName(t *testing.T) {
	if got := Cpp.DisplayName(); got != "C++" {
		t.Errorf("Cpp.DisplayName() = %q, want C++", got)
	}
}

func TestFromString(t *testing.T) {
	ok := []struct {
		in   string
		want Language
	}{
		{"python", Python}, {"PYTHON", Python}, {"py", Python},
		{"Rust", Rust}, {"rs", Rust}, {"c++", Cpp}, {"tf", Terraform},
		{"k8s", Kubernetes}, {"ts", TypeScript},
	}
	for _, c := range ok {
		got, err := FromString(c.in)
		if err != nil {
			t.Errorf("FromString(%q) returned error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("FromString(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := FromString("unknown_lang"); err == nil {
		t.Error("FromString(unknown_lang) should error")
	}
}
