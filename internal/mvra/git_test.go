package mvra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMaterializePathLayout(t *testing.T) {
	m := NewMaterializer(Config{CacheDir: "/cache"})
	got := m.Path(Repo{Owner: "diffsec", Name: "parsentry"})
	want := filepath.Join("/cache", "diffsec", "parsentry")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestMaterializeReusesCachedDirectory(t *testing.T) {
	dir := t.TempDir()
	repo := Repo{Owner: "diffsec", Name: "parsentry"}
	m := NewMaterializer(Config{CacheDir: dir, UseCache: true})

	cached := m.Path(repo)
	if err := os.MkdirAll(cached, 0o755); err != nil {
		t.Fatalf("seed cache dir: %v", err)
	}

	got, err := m.Materialize(repo)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if got != cached {
		t.Errorf("Materialize() = %q, want cached path %q", got, cached)
	}
}
