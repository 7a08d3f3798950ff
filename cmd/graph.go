package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/diffsec/parsentry/internal/config"
	"github.com/diffsec/parsentry/internal/finding"
	"github.com/diffsec/parsentry/internal/mvra"
	"github.com/diffsec/parsentry/internal/pattern"
	"github.com/diffsec/parsentry/internal/report"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Analyze a multi-variant set of repositories discovered on GitHub",
	Long: `Graph discovers repositories on GitHub (by explicit name, repository
search, or code search), clones or reuses each locally, runs the same
analysis pipeline as 'scan' against every repository, and aggregates the
resulting findings into cross-repository vulnerability variant patterns.`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("config", "", "path to parsentry.toml (defaults to ./parsentry.toml if present)")
	graphCmd.Flags().String("patterns", "vuln-patterns.yml", "path to the pattern registry")
	graphCmd.Flags().StringSlice("repo", nil, "explicit owner/name repositories to analyze (repeatable, overrides config)")
	graphCmd.Flags().String("search", "", "GitHub repository search query (overrides config)")
	graphCmd.Flags().Int("max-repos", 0, "maximum number of repositories to analyze (overrides config)")
	graphCmd.Flags().Int("min-stars", 0, "minimum star count for search-discovered repositories (overrides config)")
	graphCmd.Flags().String("output-dir", "", "directory to write aggregated results to (overrides config)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = "parsentry.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if repos, _ := cmd.Flags().GetStringSlice("repo"); len(repos) > 0 {
		cfg.MVRA.Repositories = repos
	}
	if q, _ := cmd.Flags().GetString("search"); q != "" {
		cfg.MVRA.SearchQuery = q
	}
	if n, _ := cmd.Flags().GetInt("max-repos"); n > 0 {
		cfg.MVRA.MaxRepos = n
	}
	if n, _ := cmd.Flags().GetInt("min-stars"); n > 0 {
		cfg.MVRA.MinStars = n
	}
	if outDir, _ := cmd.Flags().GetString("output-dir"); outDir != "" {
		cfg.Paths.OutputDir = outDir
	}

	patternsPath, _ := cmd.Flags().GetString("patterns")
	registry, err := pattern.Load(patternsPath)
	if err != nil {
		return fmt.Errorf("load pattern registry: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	mvraCfg := mvra.Config{
		SearchQuery:   cfg.MVRA.SearchQuery,
		ExplicitRepos: cfg.MVRA.Repositories,
		MaxRepos:      cfg.MVRA.MaxRepos,
		MinStars:      cfg.MVRA.MinStars,
		CacheDir:      cfg.MVRA.CacheDir,
		UseCache:      cfg.MVRA.UseCache,
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
	}
	coordinator := mvra.NewCoordinator(ctx, mvraCfg)

	start := time.Now()
	results, err := coordinator.Run(ctx, func(ctx context.Context, repo mvra.Repo, path string) ([]report.Finding, error) {
		ui.Info("graph", "analyzing %s", repo.FullName())
		tasks, err := buildTasks(path, registry)
		if err != nil {
			return nil, err
		}
		if len(tasks) == 0 {
			return nil, nil
		}
		summary, err := runPipeline(ctx, cfg, path, tasks)
		if err != nil {
			return nil, err
		}
		return summary.Findings(), nil
	})
	if err != nil {
		return fmt.Errorf("run graph analysis: %w", err)
	}

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	mdPath := filepath.Join(cfg.Paths.OutputDir, "mvra-results.md")
	if err := os.WriteFile(mdPath, mvra.Markdown(results), 0o644); err != nil {
		return fmt.Errorf("write mvra markdown: %w", err)
	}

	jsonPath := filepath.Join(cfg.Paths.OutputDir, "mvra-results.json")
	if err := mvra.WriteJSON(jsonPath, results); err != nil {
		return fmt.Errorf("write mvra json: %w", err)
	}

	findingStore := finding.NewStore(filepath.Join(cfg.Paths.OutputDir, "findings"))
	totalFindings := 0
	for _, rr := range results.Repos {
		for _, f := range rr.Findings {
			totalFindings++
			if err := findingStore.Create(finding.FromResponse(f)); err != nil {
				ui.Warn("failed to persist finding for %s: %v", f.FilePath, err)
			}
		}
	}

	result := map[string]interface{}{
		"repositories_analyzed": len(results.Repos),
		"variants_found":        len(results.Variants),
		"findings_total":        totalFindings,
		"duration_seconds":      time.Since(start).Seconds(),
		"output_dir":            cfg.Paths.OutputDir,
	}
	if jsonOutput {
		return outputJSON(result)
	}
	ui.Success("graph", "%d repositories analyzed, %d findings across %d variant patterns (%.1fs)",
		len(results.Repos), totalFindings, len(results.Variants), time.Since(start).Seconds())
	fmt.Printf("Results: %s\n", cfg.Paths.OutputDir)
	return nil
}
