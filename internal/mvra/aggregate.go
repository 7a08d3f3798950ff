package mvra

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/diffsec/parsentry/internal/report"
)

// VariantPattern is one vulnerability class/description pairing observed
// across the analyzed repository set, with how often and how widely it
// recurred.
type VariantPattern struct {
	VulnType        string `json:"vuln_type"`
	Description     string `json:"description"`
	Occurrences     int    `json:"occurrences"`
	RepositoryCount int    `json:"repository_count"`
}

// RepoResult is one repository's outcome: its findings, or the error that
// stopped analysis for it.
type RepoResult struct {
	Repo     Repo             `json:"repo"`
	Path     string           `json:"path"`
	Findings []report.Finding `json:"-"`
	Err      string           `json:"error,omitempty"`
}

// Results is the full MVRA run output: per-repo results plus the
// cross-repository variant rollup.
type Results struct {
	Repos    []RepoResult     `json:"repos"`
	Variants []VariantPattern `json:"variants"`
}

type variantKey struct {
	vulnType    string
	description string
}

// Aggregate rolls per-repo findings up into VariantPatterns, grouping by
// (vulnerability type, description) and counting both total occurrences
// and the number of distinct repositories a variant appeared in.
func Aggregate(repos []RepoResult) []VariantPattern {
	counts := map[variantKey]*VariantPattern{}
	reposSeen := map[variantKey]map[string]bool{}

	for _, rr := range repos {
		for _, f := range rr.Findings {
			for _, vt := range f.Response.VulnerabilityTypes {
				key := variantKey{vulnType: vt.String(), description: f.Response.Analysis}
				vp, ok := counts[key]
				if !ok {
					vp = &VariantPattern{VulnType: key.vulnType, Description: key.description}
					counts[key] = vp
					reposSeen[key] = map[string]bool{}
				}
				vp.Occurrences++
				reposSeen[key][rr.Repo.FullName()] = true
			}
		}
	}

	var out []VariantPattern
	for key, vp := range counts {
		vp.RepositoryCount = len(reposSeen[key])
		out = append(out, *vp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].VulnType < out[j].VulnType
	})
	return out
}

// WriteJSON persists results as mvra-results.json at path.
func WriteJSON(path string, results *Results) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mvra results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write mvra results %s: %w", path, err)
	}
	return nil
}

// Markdown renders a cross-repository summary table of variants.
func Markdown(results *Results) []byte {
	var b strings.Builder
	b.WriteString("# Multi-Variant Repository Analysis\n\n")
	fmt.Fprintf(&b, "分析リポジトリ数: %d\n\n", len(results.Repos))

	b.WriteString("## Variants\n\n")
	b.WriteString("| Vulnerability Type | Description | Occurrences | Repositories |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, v := range results.Variants {
		fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", v.VulnType, v.Description, v.Occurrences, v.RepositoryCount)
	}

	b.WriteString("\n## Repositories\n\n")
	b.WriteString("| Repository | Findings | Error |\n")
	b.WriteString("|---|---|---|\n")
	for _, rr := range results.Repos {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", rr.Repo.FullName(), len(rr.Findings), rr.Err)
	}

	return []byte(b.String())
}
