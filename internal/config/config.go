// Package config loads parsentry.toml and layers environment variables and
// CLI flags on top of it, following defaults < file < env < flags
// precedence throughout.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Analysis controls the core scan behavior.
type Analysis struct {
	Model         string `toml:"model"`
	MinConfidence int    `toml:"min_confidence"`
	Language      string `toml:"language"`
	Verbosity     int    `toml:"verbosity"`
}

// Paths controls the scan target and output location.
type Paths struct {
	Target    string `toml:"target"`
	OutputDir string `toml:"output_dir"`
}

// Filtering controls which vulnerability types are reported.
type Filtering struct {
	VulnTypes []string `toml:"vuln_types"`
}

// API controls direct-chat backend HTTP configuration.
type API struct {
	BaseURL string `toml:"base_url"`
}

// Provider selects and configures the LLM backend.
type Provider struct {
	ProviderType   string `toml:"provider_type"`
	Path           string `toml:"path"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	TimeoutSecs    int    `toml:"timeout_secs"`
	EnablePoC      bool   `toml:"enable_poc"`
}

// MVRA controls multi-repo variant analysis.
type MVRA struct {
	SearchQuery  string   `toml:"search_query"`
	MaxRepos     int      `toml:"max_repos"`
	CacheDir     string   `toml:"cache_dir"`
	UseCache     bool     `toml:"use_cache"`
	MinStars     int      `toml:"min_stars"`
	Repositories []string `toml:"repositories"`
}

// Cache controls the on-disk response cache.
type Cache struct {
	Dir            string `toml:"dir"`
	MaxCacheSizeMB int    `toml:"max_cache_size_mb"`
	MaxAgeDays     int    `toml:"max_age_days"`
	MaxIdleDays    int    `toml:"max_idle_days"`
}

// CallGraph controls C5's traversal bounds.
type CallGraph struct {
	MaxDepth      int  `toml:"max_depth"`
	DetectCycles  bool `toml:"detect_cycles"`
}

// Config is the full parsentry.toml document shape.
type Config struct {
	Analysis  Analysis  `toml:"analysis"`
	Paths     Paths     `toml:"paths"`
	Filtering Filtering `toml:"filtering"`
	API       API       `toml:"api"`
	Provider  Provider  `toml:"provider"`
	MVRA      MVRA      `toml:"mvra"`
	Cache     Cache     `toml:"cache"`
	CallGraph CallGraph `toml:"call_graph"`
}

// Default returns the baseline configuration applied before the file, env,
// and flag layers.
func Default() *Config {
	return &Config{
		Analysis: Analysis{
			Model:         "gpt-4o",
			MinConfidence: 70,
			Language:      "en",
			Verbosity:     0,
		},
		Paths: Paths{
			OutputDir: "parsentry-reports",
		},
		Provider: Provider{
			ProviderType:  "direct",
			MaxConcurrent: 50,
			TimeoutSecs:   300,
		},
		MVRA: MVRA{
			MaxRepos: 10,
			UseCache: true,
		},
		Cache: Cache{
			Dir:            ".parsentry-cache",
			MaxCacheSizeMB: 500,
			MaxAgeDays:     90,
			MaxIdleDays:    30,
		},
		CallGraph: CallGraph{
			MaxDepth:     5,
			DetectCycles: false,
		},
	}
}

// Load reads parsentry.toml at path (if it exists), applies it on top of
// Default(), then layers PARSENTRY_<SECTION>_<FIELD> environment overrides.
// A missing file is not an error — Default() alone is returned with env
// overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		} else {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides mutates cfg in place from PARSENTRY_<SECTION>_<FIELD>
// environment variables, e.g. PARSENTRY_ANALYSIS_MODEL, PARSENTRY_CACHE_DIR.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARSENTRY_ANALYSIS_MODEL"); v != "" {
		cfg.Analysis.Model = v
	}
	if v := os.Getenv("PARSENTRY_ANALYSIS_MIN_CONFIDENCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MinConfidence = n
		}
	}
	if v := os.Getenv("PARSENTRY_ANALYSIS_LANGUAGE"); v != "" {
		cfg.Analysis.Language = v
	}
	if v := os.Getenv("PARSENTRY_PATHS_TARGET"); v != "" {
		cfg.Paths.Target = v
	}
	if v := os.Getenv("PARSENTRY_PATHS_OUTPUT_DIR"); v != "" {
		cfg.Paths.OutputDir = v
	}
	if v := os.Getenv("PARSENTRY_FILTERING_VULN_TYPES"); v != "" {
		cfg.Filtering.VulnTypes = strings.Split(v, ",")
	}
	if v := os.Getenv("PARSENTRY_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PARSENTRY_PROVIDER_PROVIDER_TYPE"); v != "" {
		cfg.Provider.ProviderType = v
	}
	if v := os.Getenv("PARSENTRY_PROVIDER_PATH"); v != "" {
		cfg.Provider.Path = v
	}
	if v := os.Getenv("PARSENTRY_PROVIDER_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.MaxConcurrent = n
		}
	}
	if v := os.Getenv("PARSENTRY_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
}

// Validate checks invariants that must hold before a scan starts.
func (c *Config) Validate() error {
	if c.Analysis.MinConfidence < 0 || c.Analysis.MinConfidence > 100 {
		return fmt.Errorf("analysis.min_confidence must be in [0,100], got %d", c.Analysis.MinConfidence)
	}
	if c.Provider.MaxConcurrent <= 0 {
		return fmt.Errorf("provider.max_concurrent must be positive, got %d", c.Provider.MaxConcurrent)
	}
	return nil
}
