// Package pattern loads the per-language principal/action/resource query
// registry and runs it against source files to produce Match
// records — the seeds that drive prompt construction and call-graph focus.
package pattern

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/diffsec/parsentry/internal/grammar"
	"github.com/diffsec/parsentry/internal/language"
)

//go:embed vuln-patterns.yml
var defaultPatternsYAML []byte

// Kind identifies which leg of the PAR triad a pattern entry belongs to.
type Kind string

const (
	Principal Kind = "principal"
	Action    Kind = "action"
	Resource  Kind = "resource"
)

// QueryForm distinguishes a query that looks for a symbol's definition from
// one that looks for a reference/call to it.
type QueryForm string

const (
	FormDefinition QueryForm = "definition"
	FormReference  QueryForm = "reference"
)

// Config is one entry under a language's principals/actions/resources list.
type Config struct {
	Form         QueryForm `yaml:"-"`
	Query        string    `yaml:"-"`
	Description  string    `yaml:"description"`
	AttackVector []string  `yaml:"attack_vector"`
}

// rawConfig mirrors the YAML shape where the query lives under whichever of
// "definition"/"reference" is present, rather than a fixed field name.
type rawConfig struct {
	Definition   string   `yaml:"definition"`
	Reference    string   `yaml:"reference"`
	Description  string   `yaml:"description"`
	AttackVector []string `yaml:"attack_vector"`
}

func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}
	c.Description = raw.Description
	c.AttackVector = raw.AttackVector
	if raw.AttackVector == nil {
		c.AttackVector = []string{}
	}
	switch {
	case raw.Definition != "":
		c.Form = FormDefinition
		c.Query = raw.Definition
	case raw.Reference != "":
		c.Form = FormReference
		c.Query = raw.Reference
	default:
		return fmt.Errorf("pattern config must have a definition or reference query")
	}
	return nil
}

// MarshalYAML emits c back under whichever of "definition"/"reference" its
// Form calls for, mirroring the shape UnmarshalYAML reads.
func (c Config) MarshalYAML() (interface{}, error) {
	raw := rawConfig{
		Description:  c.Description,
		AttackVector: c.AttackVector,
	}
	if c.Form == FormReference {
		raw.Reference = c.Query
	} else {
		raw.Definition = c.Query
	}
	return raw, nil
}

// Save writes reg to path as YAML, overwriting any existing file.
func Save(path string, reg Registry) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal pattern registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pattern registry %s: %w", path, err)
	}
	return nil
}

// LanguagePatterns is one language's principal/action/resource query bundle.
type LanguagePatterns struct {
	Principals []Config `yaml:"principals"`
	Actions    []Config `yaml:"actions"`
	Resources  []Config `yaml:"resources"`
}

// Registry maps a language name to its pattern bundle.
type Registry map[string]LanguagePatterns

// Load reads path as the pattern registry YAML, falling back to the
// embedded default set when path does not exist.
func Load(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read pattern registry %s: %w", path, err)
		}
		data = defaultPatternsYAML
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse pattern registry: %w", err)
	}
	return reg, nil
}

// For returns the pattern bundle for lang, or an empty bundle if the
// registry has no entry for it.
func (r Registry) For(lang language.Language) LanguagePatterns {
	return r[lang.DisplayName()]
}

// Match is one pattern hit against a file's source.
type Match struct {
	Kind        Kind
	Config      Config
	MatchedText string
	StartByte   uint32
	EndByte     uint32
}

// GetPatternMatches runs every principal/action/resource query in lp
// against content via sess, returning one Match per capture.
func (lp LanguagePatterns) GetPatternMatches(sess *grammar.Session, path, content string) ([]Match, error) {
	var out []Match
	for _, group := range []struct {
		kind    Kind
		configs []Config
	}{
		{Principal, lp.Principals},
		{Action, lp.Actions},
		{Resource, lp.Resources},
	} {
		for _, cfg := range group.configs {
			matches, err := sess.RunAdHocQuery(path, cfg.Query)
			if err != nil {
				return nil, fmt.Errorf("run %s query: %w", group.kind, err)
			}
			for _, m := range matches {
				out = append(out, Match{
					Kind:        group.kind,
					Config:      cfg,
					MatchedText: m.Text,
					StartByte:   m.StartByte,
					EndByte:     m.EndByte,
				})
			}
		}
	}
	return out, nil
}
