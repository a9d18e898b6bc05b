package engine

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/bugsafe/bugsafe/internal/redact/tokenizer"
)

// newGitleaksDetector loads gitleaks' bundled default ruleset (200+
// patterns) through viper, the same way it ships its own TOML config.
func newGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("engine: failed to read gitleaks config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("engine: failed to unmarshal gitleaks config: %w", err)
	}

	gcfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("engine: failed to translate gitleaks config: %w", err)
	}

	return detect.NewDetector(gcfg), nil
}

// applyGitleaks runs the supplementary detector over text and feeds any
// findings through the same Tokenizer used by the registry patterns, so a
// secret gitleaks catches and a secret a named Pattern catches still
// collide on correlation if they're the same literal value.
func (e *Engine) applyGitleaks(text string) (string, []Match) {
	if e.gitleaksDetector == nil || text == "" {
		return text, nil
	}

	findings := e.gitleaksDetector.Detect(detect.Fragment{Raw: text})

	result := text
	var matches []Match
	for _, finding := range findings {
		if finding.Secret == "" || tokenizer.IsToken(finding.Secret) {
			continue
		}
		if !strings.Contains(result, finding.Secret) {
			continue
		}
		category := tokenizer.NormalizeCategory("GITLEAKS_" + finding.RuleID)
		token := e.Tokenizer.Tokenize(finding.Secret, category)
		result = strings.ReplaceAll(result, finding.Secret, token)
		matches = append(matches, Match{
			Original:    finding.Secret,
			Token:       token,
			Category:    category,
			PatternName: "gitleaks:" + finding.RuleID,
		})
	}

	return result, matches
}
