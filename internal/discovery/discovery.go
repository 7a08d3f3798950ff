// Package discovery walks a repository tree to find analyzable files and
// classifies each one by language, honoring .gitignore and a small set of
// test-file exclusions the way the upstream scanner does.
package discovery

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxPatternScanBytes is the size above which a file is still discovered
// (so callers know it exists) but is excluded from pattern/LLM scanning.
const MaxPatternScanBytes = 50_000

// excludedSubstrings skips test fixtures and generated test code, which add
// noise without adding attack surface.
var excludedSubstrings = []string{"test_", "conftest", "_test.", ".spec."}

// File is one discovered file with its size; Discover does not classify it
// (see Classify).
type File struct {
	Path           string
	Size           int64
	TooLargeToScan bool
}

// Discover walks root, honoring a .gitignore file at its top level, and
// returns every file not excluded by name or ignore pattern.
func Discover(root string) ([]File, error) {
	ignore, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}

	var out []File
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && (rel == ".git" || ignore.matches(rel, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if isExcludedName(name) {
			return nil
		}
		if ignore.matches(rel, false) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}
		out = append(out, File{
			Path:           path,
			Size:           info.Size(),
			TooLargeToScan: info.Size() > MaxPatternScanBytes,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isExcludedName(name string) bool {
	for _, s := range excludedSubstrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// gitignoreSet is a minimal .gitignore matcher: bare-name segment matches,
// prefix*/*suffix globs, and literal or prefix-with-slash path matches.
type gitignoreSet struct {
	patterns []string
}

func loadGitignore(root string) (*gitignoreSet, error) {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return &gitignoreSet{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return &gitignoreSet{patterns: patterns}, scanner.Err()
}

func (g *gitignoreSet) matches(relPath string, isDir bool) bool {
	if g == nil {
		return false
	}
	base := filepath.Base(relPath)
	for _, p := range g.patterns {
		pat := p
		dirOnly := strings.HasSuffix(pat, "/")
		if dirOnly {
			pat = strings.TrimSuffix(pat, "/")
			if !isDir {
				continue
			}
		}
		anchored := strings.HasPrefix(pat, "/")
		pat = strings.TrimPrefix(pat, "/")

		if !strings.Contains(pat, "/") {
			// bare-name segment match against any path component, with glob support
			if ok, _ := doublestar.Match(pat, base); ok {
				return true
			}
			continue
		}

		if anchored {
			if ok, _ := doublestar.Match(pat, relPath); ok {
				return true
			}
			continue
		}
		if relPath == pat || strings.HasPrefix(relPath, pat+"/") {
			return true
		}
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}
