package report

import "testing"

func TestOutputFilenameUniqueness(t *testing.T) {
	root := "/project"
	cases := map[string]string{
		"/project/app/routes.py":   "app-routes.py.md",
		"/project/api/routes.py":   "api-routes.py.md",
		"/project/utils/routes.py": "utils-routes.py.md",
	}
	seen := map[string]bool{}
	for path, want := range cases {
		got := OutputFilename(path, root)
		if got != want {
			t.Errorf("OutputFilename(%q) = %q, want %q", path, got, want)
		}
		if seen[got] {
			t.Errorf("collision on %q", got)
		}
		seen[got] = true
	}
}

func TestOutputFilenameTraversalFallsBackToFullPath(t *testing.T) {
	got := OutputFilename("/other/app/../../etc/passwd", "/project")
	if got == "" {
		t.Fatal("expected a non-empty filename")
	}
}

func TestPatternSpecificFilename(t *testing.T) {
	root := "/project"
	file := "/project/routes.py"

	got1 := PatternSpecificFilename(file, root, "SQL Injection")
	got2 := PatternSpecificFilename(file, root, "XSS Vulnerability")

	if got1 != "routes.py-sql-injection.md" {
		t.Errorf("got %q", got1)
	}
	if got2 != "routes.py-xss-vulnerability.md" {
		t.Errorf("got %q", got2)
	}
	if got1 == got2 {
		t.Error("expected distinct filenames for distinct patterns")
	}
}

func TestSlugifyEmptyDescriptionFallsBackToPattern(t *testing.T) {
	got := PatternSpecificFilename("/project/a.py", "/project", "***")
	if got != "a.py-pattern.md" {
		t.Errorf("got %q", got)
	}
}
