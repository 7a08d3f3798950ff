package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/diffsec/parsentry/internal/backend"
	"github.com/diffsec/parsentry/internal/backend/chat"
	"github.com/diffsec/parsentry/internal/cache"
	parcontext "github.com/diffsec/parsentry/internal/context"
	"github.com/diffsec/parsentry/internal/config"
	"github.com/diffsec/parsentry/internal/discovery"
	"github.com/diffsec/parsentry/internal/finding"
	"github.com/diffsec/parsentry/internal/grammar"
	"github.com/diffsec/parsentry/internal/language"
	"github.com/diffsec/parsentry/internal/orchestrator"
	"github.com/diffsec/parsentry/internal/pattern"
	"github.com/diffsec/parsentry/internal/prompt"
	"github.com/diffsec/parsentry/internal/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a local source tree for vulnerabilities",
	Long: `Scan discovers analyzable files under <path>, matches them against the
configured pattern registry, sends every match to the configured LLM backend
for Principal/Action/Resource triage, and writes one Markdown report per
finding plus a SARIF 2.1.0 log and a summary table.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("config", "", "path to parsentry.toml (defaults to ./parsentry.toml if present)")
	scanCmd.Flags().String("patterns", "vuln-patterns.yml", "path to the pattern registry")
	scanCmd.Flags().String("output-dir", "", "directory to write reports to (overrides config)")
	scanCmd.Flags().Int("min-confidence", 0, "minimum confidence score to report (overrides config)")
	scanCmd.Flags().String("lang", "", "response language: english or japanese (overrides config)")
	scanCmd.Flags().Bool("sarif", true, "also write a SARIF 2.1.0 log")
}

func runScan(cmd *cobra.Command, args []string) error {
	root := args[0]

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

	if outDir, _ := cmd.Flags().GetString("output-dir"); outDir != "" {
		cfg.Paths.OutputDir = outDir
	}
	if minConf, _ := cmd.Flags().GetInt("min-confidence"); minConf > 0 {
		cfg.Analysis.MinConfidence = minConf
	}
	if lang, _ := cmd.Flags().GetString("lang"); lang != "" {
		cfg.Analysis.Language = lang
	}

	patternsPath, _ := cmd.Flags().GetString("patterns")
	registry, err := pattern.Load(patternsPath)
	if err != nil {
		return fmt.Errorf("load pattern registry: %w", err)
	}

	tasks, err := buildTasks(root, registry)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		ui.Info("scan", "no pattern matches found under %s; nothing to analyze", root)
		return nil
	}
	ui.Info("scan", "analyzing %d pattern matches under %s", len(tasks), root)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	start := time.Now()
	summary, err := runPipeline(ctx, cfg, root, tasks)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	written := 0
	for _, outcome := range summary.Outcomes {
		if !outcome.Written() {
			continue
		}
		path := filepath.Join(cfg.Paths.OutputDir, outcome.Filename)
		if err := os.WriteFile(path, outcome.Markdown, 0o644); err != nil {
			return fmt.Errorf("write report %s: %w", path, err)
		}
		written++
	}

	findings := summary.Findings()
	if sarifOn, _ := cmd.Flags().GetBool("sarif"); sarifOn && len(findings) > 0 {
		runID := uuid.NewString()
		sarifBytes, err := report.SARIF(findings, runID)
		if err != nil {
			return fmt.Errorf("build sarif: %w", err)
		}
		sarifPath := filepath.Join(cfg.Paths.OutputDir, "parsentry.sarif")
		if err := os.WriteFile(sarifPath, sarifBytes, 0o644); err != nil {
			return fmt.Errorf("write sarif: %w", err)
		}
	}

	summaryBytes := report.Summary(summary.SummaryRows())
	summaryPath := filepath.Join(cfg.Paths.OutputDir, "summary.md")
	if err := os.WriteFile(summaryPath, summaryBytes, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	findingStore := finding.NewStore(filepath.Join(cfg.Paths.OutputDir, "findings"))
	for _, f := range findings {
		persisted := finding.FromResponse(f)
		if err := findingStore.Create(persisted); err != nil {
			ui.Warn("failed to persist finding for %s: %v", f.FilePath, err)
		}
	}

	result := map[string]interface{}{
		"patterns_matched": len(tasks),
		"findings_written": written,
		"dropped":          summary.Dropped,
		"duration_seconds": time.Since(start).Seconds(),
		"output_dir":       cfg.Paths.OutputDir,
	}
	if jsonOutput {
		return outputJSON(result)
	}
	ui.Success("scan", "%d findings written, %d dropped after errors (%.1fs)",
		written, summary.Dropped, time.Since(start).Seconds())
	fmt.Printf("Reports: %s\n", cfg.Paths.OutputDir)
	return nil
}

// runPipeline wires a backend, cache store, and orchestrator from cfg and
// runs tasks through them. Shared by scan (one local tree) and graph (one
// call per discovered repository).
func runPipeline(ctx context.Context, cfg *config.Config, root string, tasks []orchestrator.Task) (*orchestrator.Summary, error) {
	be, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	cacheStore, err := cache.NewStore(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	respLang := prompt.English
	if strings.EqualFold(cfg.Analysis.Language, "ja") || strings.EqualFold(cfg.Analysis.Language, "japanese") {
		respLang = prompt.Japanese
	}

	orch := orchestrator.New(orchestrator.Config{
		Backend:        be,
		Cache:          cacheStore,
		Provider:       cfg.Provider.ProviderType,
		Model:          cfg.Analysis.Model,
		MaxConcurrency: cfg.Provider.MaxConcurrent,
		MinConfidence:  cfg.Analysis.MinConfidence,
		RootDir:        root,
		Format:         prompt.Json{},
		Lang:           respLang,
	})

	summary, err := orch.Run(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("run scan: %w", err)
	}
	return summary, nil
}

// buildTasks discovers files under root, matches each against its
// language's pattern set, and assembles one orchestrator.Task per match.
func buildTasks(root string, registry pattern.Registry) ([]orchestrator.Task, error) {
	files, err := discovery.Discover(root)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	var tasks []orchestrator.Task
	for _, f := range files {
		if f.TooLargeToScan {
			continue
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			continue
		}
		lang := discovery.Classify(f.Path, string(data))
		if lang == language.Other {
			continue
		}

		lp := registry.For(lang)
		sess := grammar.NewSession()
		if err := sess.AddFile(f.Path); err != nil {
			continue
		}

		matches, err := lp.GetPatternMatches(sess, f.Path, string(data))
		if err != nil || len(matches) == 0 {
			continue
		}

		for _, m := range matches {
			bundle, err := parcontext.Build(f.Path, lang, m, nil)
			if err != nil {
				continue
			}
			tasks = append(tasks, orchestrator.Task{Bundle: bundle})
		}
	}
	return tasks, nil
}

// buildBackend selects an LLM execution strategy from cfg.Provider. Only the
// direct chat backend is wired here; subprocess/ACP selection needs the
// caller's agent binary path, which scan.go has no flag for yet.
func buildBackend(cfg *config.Config) (backend.Backend, error) {
	switch cfg.Provider.ProviderType {
	case "", "direct", "chat":
		apiKey := os.Getenv("OPENAI_API_KEY")
		return chat.New(chat.Config{
			Model:         cfg.Analysis.Model,
			BaseURL:       cfg.API.BaseURL,
			Timeout:       time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
			MaxConcurrent: cfg.Provider.MaxConcurrent,
		}, apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider_type %q (supported: direct)", cfg.Provider.ProviderType)
	}
}
