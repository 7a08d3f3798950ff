// Package mvra coordinates a Multi-Variant Repository Analysis run:
// discover candidate repositories on GitHub, clone or reuse each locally,
// run the single-repo analysis pipeline against it, and aggregate the
// resulting findings into cross-repository vulnerability variants.
package mvra

import (
	"context"
	"fmt"

	"github.com/google/go-github/v45/github"
	"golang.org/x/oauth2"
)

// Repo is one candidate repository to analyze.
type Repo struct {
	Owner string
	Name  string
	Stars int
}

// FullName returns "owner/name".
func (r Repo) FullName() string { return r.Owner + "/" + r.Name }

// Config configures repository discovery and cloning.
type Config struct {
	SearchQuery   string
	CodeQuery     string
	ExplicitRepos []string // "owner/name" pairs, analyzed first and never filtered by MinStars
	MaxRepos      int
	MinStars      int
	CacheDir      string
	UseCache      bool
	GitHubToken   string
}

// newGitHubClient builds an authenticated client when a token is configured,
// falling back to an unauthenticated client (subject to GitHub's anonymous
// rate limits) otherwise — the same oauth2.StaticTokenSource pattern used
// for the rest of this scanner's GitHub-backed tooling.
func newGitHubClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// Discoverer finds candidate repositories via explicit names, repo search,
// and code search.
type Discoverer struct {
	client *github.Client
	cfg    Config
}

// NewDiscoverer constructs a Discoverer.
func NewDiscoverer(ctx context.Context, cfg Config) *Discoverer {
	return &Discoverer{client: newGitHubClient(ctx, cfg.GitHubToken), cfg: cfg}
}

// Discover builds the candidate list: explicit repos first, then paginated
// repo-search results until MaxRepos is reached, then code-search results
// deduped by owner/name — all filtered by MinStars once the GitHub API has
// told us a repository's star count (explicit repos skip that filter,
// since the caller named them directly).
func (d *Discoverer) Discover(ctx context.Context) ([]Repo, error) {
	var out []Repo
	seen := map[string]bool{}

	for _, full := range d.cfg.ExplicitRepos {
		owner, name, ok := splitFullName(full)
		if !ok {
			continue
		}
		if seen[full] {
			continue
		}
		seen[full] = true
		out = append(out, Repo{Owner: owner, Name: name})
	}

	if d.cfg.SearchQuery != "" {
		repos, err := d.searchRepositories(ctx)
		if err != nil {
			return nil, fmt.Errorf("repository search: %w", err)
		}
		for _, r := range repos {
			if len(out) >= d.cfg.MaxRepos && d.cfg.MaxRepos > 0 {
				break
			}
			if seen[r.FullName()] || r.Stars < d.cfg.MinStars {
				continue
			}
			seen[r.FullName()] = true
			out = append(out, r)
		}
	}

	if d.cfg.CodeQuery != "" && (d.cfg.MaxRepos <= 0 || len(out) < d.cfg.MaxRepos) {
		repos, err := d.searchCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("code search: %w", err)
		}
		for _, r := range repos {
			if len(out) >= d.cfg.MaxRepos && d.cfg.MaxRepos > 0 {
				break
			}
			if seen[r.FullName()] || r.Stars < d.cfg.MinStars {
				continue
			}
			seen[r.FullName()] = true
			out = append(out, r)
		}
	}

	return out, nil
}

func (d *Discoverer) searchRepositories(ctx context.Context) ([]Repo, error) {
	var out []Repo
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		result, resp, err := d.client.Search.Repositories(ctx, d.cfg.SearchQuery, opts)
		if err != nil {
			return nil, err
		}
		for _, repository := range result.Repositories {
			out = append(out, Repo{
				Owner: repository.GetOwner().GetLogin(),
				Name:  repository.GetName(),
				Stars: repository.GetStargazersCount(),
			})
		}
		if d.cfg.MaxRepos > 0 && len(out) >= d.cfg.MaxRepos {
			break
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (d *Discoverer) searchCode(ctx context.Context) ([]Repo, error) {
	var out []Repo
	seen := map[string]bool{}
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		result, resp, err := d.client.Search.Code(ctx, d.cfg.CodeQuery, opts)
		if err != nil {
			return nil, err
		}
		for _, codeResult := range result.CodeResults {
			repository := codeResult.GetRepository()
			full := repository.GetOwner().GetLogin() + "/" + repository.GetName()
			if seen[full] {
				continue
			}
			seen[full] = true
			out = append(out, Repo{
				Owner: repository.GetOwner().GetLogin(),
				Name:  repository.GetName(),
				Stars: repository.GetStargazersCount(),
			})
		}
		if d.cfg.MaxRepos > 0 && len(out) >= d.cfg.MaxRepos {
			break
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func splitFullName(full string) (owner, name string, ok bool) {
	for i, r := range full {
		if r == '/' {
			return full[:i], full[i+1:], true
		}
	}
	return "", "", false
}
