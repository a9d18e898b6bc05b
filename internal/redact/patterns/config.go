package patterns

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Config holds the policy knobs that decide which patterns actually run.
// The zero value matches everything at PriorityOptional and above, with
// emails and IPs redacted and UUIDs left alone.
type Config struct {
	// EnabledPatterns restricts matching to this set of pattern names.
	// Nil means "all patterns are eligible" (subject to the other gates).
	EnabledPatterns map[string]struct{}
	// DisabledPatterns removes specific patterns regardless of priority.
	DisabledPatterns map[string]struct{}
	// CustomPatterns are appended to the built-in catalog.
	CustomPatterns []Pattern
	MinPriority    Priority
	RedactEmails   bool
	RedactIPs      bool
	RedactUUIDs    bool

	// FilterExpr is an optional expr-lang expression evaluated against a
	// MatchEnv for each candidate secret; a false result vetoes the match
	// even if every other gate passed. Lets an operator write something
	// like `category != "HOSTNAME" || len(text) > 40` without recompiling
	// the binary.
	FilterExpr string

	filterProgram *vm.Program
}

// MatchEnv is the expr-lang evaluation environment for Config.FilterExpr.
type MatchEnv struct {
	Name     string `expr:"name"`
	Category string `expr:"category"`
	Priority int    `expr:"priority"`
	Text     string `expr:"text"`
}

// DefaultConfig mirrors the Python original's PatternConfig defaults.
func DefaultConfig() Config {
	return Config{
		MinPriority:  PriorityOptional,
		RedactEmails: true,
		RedactIPs:    true,
		RedactUUIDs:  false,
	}
}

// Compile parses FilterExpr (if set) once so ShouldApply/Allow can be
// called per-match without re-parsing the expression every time.
func (c *Config) Compile() error {
	if c.FilterExpr == "" {
		return nil
	}
	program, err := expr.Compile(c.FilterExpr, expr.Env(MatchEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("patterns: invalid filter expression: %w", err)
	}
	c.filterProgram = program
	return nil
}

// Allow runs the compiled FilterExpr (if any) against a candidate match.
// A nil program always allows, matching the "no advanced filter" default.
func (c *Config) Allow(p Pattern, text string) (bool, error) {
	if c.filterProgram == nil {
		return true, nil
	}
	out, err := expr.Run(c.filterProgram, MatchEnv{
		Name:     p.Name,
		Category: p.Category,
		Priority: int(p.Priority),
		Text:     text,
	})
	if err != nil {
		return false, fmt.Errorf("patterns: filter expression error: %w", err)
	}
	allowed, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("patterns: filter expression did not return a bool, got %v", out)
	}
	return allowed, nil
}

// ShouldApply reports whether pattern p is eligible to run at all under
// this config, independent of any particular match (the category/priority
// gates from the Python original's _should_apply_pattern).
func (c *Config) ShouldApply(p Pattern) bool {
	if _, disabled := c.DisabledPatterns[p.Name]; disabled {
		return false
	}
	if c.EnabledPatterns != nil {
		if _, enabled := c.EnabledPatterns[p.Name]; !enabled {
			return false
		}
	}
	if p.Category == "EMAIL" && !c.RedactEmails {
		return false
	}
	if p.Category == "IP_PRIVATE" || p.Category == "IP_PUBLIC" {
		if !c.RedactIPs {
			return false
		}
	}
	if p.Category == "UUID" {
		return c.RedactUUIDs
	}
	return p.Priority >= c.MinPriority
}

// AllPatterns returns the built-in catalog plus any custom patterns
// configured on c.
func (c *Config) AllPatterns() []Pattern {
	if len(c.CustomPatterns) == 0 {
		return Default
	}
	out := make([]Pattern, 0, len(Default)+len(c.CustomPatterns))
	out = append(out, Default...)
	out = append(out, c.CustomPatterns...)
	return out
}
