package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diffsec/parsentry/internal/cache"
	"github.com/diffsec/parsentry/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the LLM response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size on disk",
	RunE:  runCacheStats,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale and version-mismatched cache entries",
	RunE:  runCacheClean,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheCleanCmd, cacheClearCmd)
	cacheCmd.PersistentFlags().String("config", "", "path to parsentry.toml (defaults to ./parsentry.toml if present)")
}

func cacheConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = "parsentry.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := cacheConfig(cmd)
	if err != nil {
		return err
	}
	store, err := cache.NewStore(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	size, err := store.TotalSize()
	if err != nil {
		return fmt.Errorf("measure cache size: %w", err)
	}
	result := map[string]interface{}{
		"dir":        store.Dir(),
		"size_bytes": size,
	}
	if jsonOutput {
		return outputJSON(result)
	}
	fmt.Printf("Cache at %s: %.2f MB\n", store.Dir(), float64(size)/1_000_000)
	return nil
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	cfg, err := cacheConfig(cmd)
	if err != nil {
		return err
	}
	policy := cache.DefaultPolicy()
	if cfg.Cache.MaxCacheSizeMB > 0 {
		policy.MaxCacheSizeMB = cfg.Cache.MaxCacheSizeMB
	}
	if cfg.Cache.MaxAgeDays > 0 {
		policy.MaxAgeDays = cfg.Cache.MaxAgeDays
	}
	if cfg.Cache.MaxIdleDays > 0 {
		policy.MaxIdleDays = cfg.Cache.MaxIdleDays
	}

	mgr := cache.NewManagerWithConfig(cfg.Cache.Dir, policy, cache.DefaultTrigger())
	stats, err := mgr.CleanupStaleEntries()
	if err != nil {
		return fmt.Errorf("clean cache: %w", err)
	}

	result := map[string]interface{}{
		"removed_count": stats.RemovedCount,
		"freed_bytes":   stats.FreedBytes,
	}
	if jsonOutput {
		return outputJSON(result)
	}
	fmt.Printf("Removed %d stale entries, freed %.2f MB\n", stats.RemovedCount, float64(stats.FreedBytes)/1_000_000)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := cacheConfig(cmd)
	if err != nil {
		return err
	}
	store, err := cache.NewStore(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if err := store.ClearAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if jsonOutput {
		return outputJSON(map[string]interface{}{"cleared": true})
	}
	fmt.Println("Cache cleared.")
	return nil
}
