package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/diffsec/parsentry/internal/config"
	"github.com/diffsec/parsentry/internal/pattern"
	"github.com/diffsec/parsentry/internal/patterngen"
)

var generateCmd = &cobra.Command{
	Use:   "generate <path>",
	Short: "Derive new grammar patterns for a language from an example tree",
	Long: `Generate walks <path>, extracts candidate function/call-site grammar
queries, asks the configured LLM backend to classify each candidate into a
pattern kind, and merges the results into the pattern registry.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("config", "", "path to parsentry.toml (defaults to ./parsentry.toml if present)")
	generateCmd.Flags().String("patterns", "vuln-patterns.yml", "path to the pattern registry to merge into")
}

func runGenerate(cmd *cobra.Command, args []string) error {
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

	patternsPath, _ := cmd.Flags().GetString("patterns")
	registry, err := pattern.Load(patternsPath)
	if err != nil {
		return fmt.Errorf("load pattern registry: %w", err)
	}

	be, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	gen := patterngen.New(be, cfg.Analysis.Model)
	candidates, err := gen.Generate(ctx, root)
	if err != nil {
		return fmt.Errorf("generate candidates: %w", err)
	}

	merged := patterngen.MergeInto(registry, candidates)
	if err := pattern.Save(patternsPath, merged); err != nil {
		return fmt.Errorf("save pattern registry: %w", err)
	}

	total := 0
	for _, cs := range candidates {
		total += len(cs)
	}

	result := map[string]interface{}{
		"languages_touched": len(candidates),
		"candidates_found":  total,
		"patterns_path":     patternsPath,
	}
	if jsonOutput {
		return outputJSON(result)
	}
	fmt.Printf("Generated %d candidate patterns across %d languages; merged into %s\n",
		total, len(candidates), patternsPath)
	return nil
}
