// Package config loads and validates per-collection configuration.
//
// A collection is a directory holding a reserved ".search" subdirectory
// with a config.toml file; the same subdirectory also holds the metadata
// cache and the full-text index.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/colsearch/colsearch/internal/errors"
	"github.com/colsearch/colsearch/internal/pattern"
)

const (
	// SearchDir is the reserved subdirectory holding all collection state.
	SearchDir = ".search"
	// ConfigFile is the config file name inside SearchDir.
	ConfigFile = "config.toml"
	// IndexDirName is the index directory name inside SearchDir.
	IndexDirName = "index"
	// LockFile guards a collection against concurrent writers.
	LockFile = "lock"

	// InputPlaceholder is the token in extractor command templates that is
	// replaced with the absolute path of the file being extracted.
	InputPlaceholder = "{input}"
)

// Format selects the structured format extractors emit and cache entries
// are stored in.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config is a collection's parsed configuration.
type Config struct {
	Name       string            `toml:"name"`
	Include    PatternList       `toml:"include"`
	Exclude    PatternList       `toml:"exclude"`
	Extractors map[string]string `toml:"extractors"`
	Output     OutputConfig      `toml:"output"`

	// extractors in declaration order, compiled during Validate.
	dispatch []extractorEntry
	rules    *pattern.RuleSet
}

// PatternList holds an ordered sequence of glob patterns.
type PatternList struct {
	Patterns []string `toml:"patterns"`
}

// OutputConfig configures extractor output parsing and cache placement.
type OutputConfig struct {
	// Format is the structured format extractors print ("yaml" or "json").
	// Defaults to yaml.
	Format Format `toml:"format"`
	// Directory is the cache directory relative to SearchDir.
	// Defaults to "cache".
	Directory string `toml:"directory"`
}

type extractorEntry struct {
	glob    *pattern.Glob
	command string
}

// Default returns the configuration written by "colsearch init".
func Default() *Config {
	return &Config{
		Name: "Default Collection",
		Include: PatternList{
			Patterns: []string{"*.pdf", "*.md", "*.txt", "*.docx"},
		},
		Exclude: PatternList{
			Patterns: []string{"*~", "*.bak", "*.tmp", ".git/*", ".search/*"},
		},
		Extractors: map[string]string{
			"*.md":   "text-extractor {input}",
			"*.txt":  "text-extractor {input}",
			"*.pdf":  "pdf-extractor {input}",
			"*.docx": "docx-extractor {input}",
		},
		Output: OutputConfig{
			Format:    FormatYAML,
			Directory: "cache",
		},
	}
}

// Load parses and validates the config file under root.
// A missing file yields ErrCodeConfigNotFound; anything malformed is
// ErrCodeConfigInvalid. There is no silently-empty fallback: a directory
// is a collection iff its config parses.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, SearchDir, ConfigFile)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeConfigNotFound,
				fmt.Sprintf("no collection config at %s", path), err)
		}
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot read %s", path), err)
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.ConfigError(
			fmt.Sprintf("malformed config %s: %v", path, err), err)
	}

	cfg.applyDefaults()

	order, err := extractorOrder(raw, cfg.Extractors)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), err).WithDetail("path", path)
	}

	if err := cfg.compile(order); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills in unset optional fields.
func (c *Config) applyDefaults() {
	if c.Output.Format == "" {
		c.Output.Format = FormatYAML
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "cache"
	}
}

// compile validates globs and command templates and builds the dispatch
// table and filter rule set.
func (c *Config) compile(order []string) error {
	switch c.Output.Format {
	case FormatYAML, FormatJSON:
	default:
		return errors.ConfigError(
			fmt.Sprintf("unrecognized output format %q (want yaml or json)", c.Output.Format), nil)
	}

	c.dispatch = c.dispatch[:0]
	for _, key := range order {
		command := c.Extractors[key]
		g, err := pattern.Compile(key)
		if err != nil {
			return errors.ConfigError(
				fmt.Sprintf("invalid extractor glob %q: %v", key, err), err)
		}
		if !strings.Contains(command, InputPlaceholder) {
			return errors.ConfigError(
				fmt.Sprintf("extractor command for %q is missing the %s placeholder", key, InputPlaceholder), nil)
		}
		c.dispatch = append(c.dispatch, extractorEntry{glob: g, command: command})
	}

	rules, err := pattern.NewRuleSet(c.Include.Patterns, c.Exclude.Patterns)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid pattern: %v", err), err)
	}
	c.rules = rules

	return nil
}

// Rules returns the compiled include/exclude rule set.
func (c *Config) Rules() *pattern.RuleSet {
	return c.rules
}

// ResolveExtractor returns the command template for the FIRST extractor
// glob matching relpath, in declaration order. Extractors are a priority
// list, not layered rules: dispatch precedence is intentionally first-match
// while filtering is last-match.
func (c *Config) ResolveExtractor(relpath string) (string, bool) {
	for _, e := range c.dispatch {
		if e.glob.MatchFile(relpath) {
			return e.command, true
		}
	}
	return "", false
}

// extractorOrder recovers the declaration order of the [extractors] table
// from the raw TOML, since Go maps do not preserve key order and dispatch
// is first-match. Duplicate patterns are ambiguous dispatch and rejected
// (the TOML decoder already rejects exact duplicate keys; this also covers
// order-scan anomalies). Keys the scan cannot locate are appended in sorted
// order so dispatch stays deterministic.
func extractorOrder(raw []byte, extractors map[string]string) ([]string, error) {
	seen := make(map[string]bool, len(extractors))
	var order []string

	inTable := false
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inTable = line == "[extractors]"
			continue
		}
		if !inTable || line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		key = strings.Trim(key, `"'`)
		if _, ok := extractors[key]; !ok {
			continue
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate extractor pattern %q (ambiguous dispatch)", key)
		}
		seen[key] = true
		order = append(order, key)
	}

	var missing []string
	for key := range extractors {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		order = append(order, missing...)
	}

	return order, nil
}
