package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/bugsafe/bugsafe/internal/redact/patterns"
)

// customPatternDoc is the YAML shape of a custom pattern file: a flat list
// under a single "patterns" key.
type customPatternDoc struct {
	Patterns []customPatternEntry `yaml:"patterns"`
}

type customPatternEntry struct {
	Name         string `yaml:"name"`
	Regex        string `yaml:"regex"`
	Category     string `yaml:"category"`
	Priority     int    `yaml:"priority"`
	CaptureGroup int    `yaml:"capture_group"`
	Flags        string `yaml:"flags"`
}

// LoadCustomPatterns reads a custom-pattern YAML file, the
// redaction.custom_patterns_file a Config may name.
func LoadCustomPatterns(path string) ([]patterns.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read custom patterns file: %w", err)
	}

	var doc customPatternDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: failed to parse custom patterns file: %w", err)
	}

	out := make([]patterns.Pattern, 0, len(doc.Patterns))
	for _, entry := range doc.Patterns {
		p, err := patterns.CreateCustom(
			entry.Name,
			entry.Regex,
			entry.Category,
			patterns.Priority(entry.Priority),
			entry.CaptureGroup,
			entry.Flags,
		)
		if err != nil {
			return nil, fmt.Errorf("config: invalid custom pattern %q: %w", entry.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// PatternsConfig translates a loaded Config's redaction settings into the
// patterns.Config the redaction engine consumes, loading
// redaction.custom_patterns_file if one is set.
func (c *Config) PatternsConfig() (patterns.Config, error) {
	pc := patterns.DefaultConfig()
	pc.RedactEmails = c.Redaction.RedactEmails
	pc.RedactIPs = c.Redaction.RedactIPs
	pc.RedactUUIDs = c.Redaction.RedactUUIDs

	if c.Redaction.CustomPatternsFile != "" {
		custom, err := LoadCustomPatterns(c.Redaction.CustomPatternsFile)
		if err != nil {
			return pc, err
		}
		pc.CustomPatterns = custom
	}

	return pc, nil
}
