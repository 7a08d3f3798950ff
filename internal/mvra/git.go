package mvra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/diffsec/parsentry/internal/apperrors"
)

// Materializer clones or reuses a repository under a local cache directory.
type Materializer struct {
	cfg Config
}

// NewMaterializer constructs a Materializer.
func NewMaterializer(cfg Config) *Materializer {
	return &Materializer{cfg: cfg}
}

// Path returns the local cache path for repo, without touching disk.
func (m *Materializer) Path(repo Repo) string {
	return filepath.Join(m.cfg.CacheDir, repo.Owner, repo.Name)
}

// Materialize returns repo's local working copy: the cached clone if it
// already exists and UseCache is set, otherwise a fresh clone. Cloning goes
// through go-git's native implementation rather than shelling out to a git
// binary, which sidesteps having to validate a resolved binary's path
// against a trusted-prefix allowlist entirely — there is no external
// process to resolve in the first place.
func (m *Materializer) Materialize(repo Repo) (string, error) {
	path := m.Path(repo)

	if m.cfg.UseCache {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create cache directory for %s: %w", repo.FullName(), err)
	}

	url := fmt.Sprintf("https://github.com/%s.git", repo.FullName())
	opts := &git.CloneOptions{URL: url, Depth: 1}
	if m.cfg.GitHubToken != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: m.cfg.GitHubToken}
	}

	if _, err := git.PlainClone(path, false, opts); err != nil {
		return "", &apperrors.CloneError{Repo: repo.FullName(), Err: err}
	}
	return path, nil
}
