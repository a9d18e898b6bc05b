// Package engine orchestrates secret detection, tokenization and path
// anonymization into a single redaction pass.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zricethezav/gitleaks/v8/detect"
	"golang.org/x/sync/errgroup"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
	"github.com/bugsafe/bugsafe/internal/redact/pathanon"
	"github.com/bugsafe/bugsafe/internal/redact/patterns"
	"github.com/bugsafe/bugsafe/internal/redact/tokenizer"
)

// DefaultPatternTimeout bounds how long a single pattern may run before its
// result is abandoned, guarding against a catastrophically backtracking
// custom pattern. RE2 (Go's regexp engine) can't actually backtrack, so this
// mainly protects against pathologically large inputs to a legitimate
// pattern, but the guard stays in place for custom/expr-filtered patterns
// and for parity with the deployments this system replaces.
const DefaultPatternTimeout = 100 * time.Millisecond

// MinSecretLength discards matches too short to plausibly be a secret.
const MinSecretLength = 4

// MaxPatternLength is the source-length ceiling enforced on custom patterns
// before they're ever compiled.
const MaxPatternLength = 1000

// Engine runs the full redaction pipeline: an optional gitleaks pass, the
// registry patterns sorted by priority, then path anonymization.
type Engine struct {
	Tokenizer      *tokenizer.Tokenizer
	PathAnonymizer *pathanon.Anonymizer
	Config         patterns.Config
	Patterns       []patterns.Pattern
	PatternTimeout time.Duration

	gitleaksDetector *detect.Detector
	lastReport       *Report
}

// Options configures everything about Engine construction that isn't a
// pattern-matching policy knob (those live on patterns.Config).
type Options struct {
	ProjectRoot     string
	PatternTimeout  time.Duration
	DisableGitleaks bool
}

// New builds an Engine from a pattern configuration and construction
// options. Custom patterns whose source exceeds MaxPatternLength are
// rejected up front rather than at match time.
func New(cfg patterns.Config, opts Options) (*Engine, error) {
	for _, p := range cfg.CustomPatterns {
		if n := len(p.Regex.String()); n > MaxPatternLength {
			return nil, &bugsafeerrors.PatternComplexityError{Name: p.Name, Length: n, Limit: MaxPatternLength}
		}
	}

	if err := cfg.Compile(); err != nil {
		return nil, err
	}

	timeout := opts.PatternTimeout
	if timeout == 0 {
		timeout = DefaultPatternTimeout
	}

	e := &Engine{
		Tokenizer:      tokenizer.New(),
		PathAnonymizer: pathanon.New(opts.ProjectRoot),
		Config:         cfg,
		Patterns:       cfg.AllPatterns(),
		PatternTimeout: timeout,
		lastReport:     NewReport(),
	}

	if !opts.DisableGitleaks {
		detector, err := newGitleaksDetector()
		if err != nil {
			// Gitleaks is supplementary; its absence degrades coverage but
			// should never stop the registry patterns from running.
			e.lastReport.Warnings = append(e.lastReport.Warnings,
				fmt.Sprintf("gitleaks detector unavailable: %v", err))
		} else {
			e.gitleaksDetector = detector
		}
	}

	return e, nil
}

// Redact scrubs text, returning the redacted result and a report of every
// match made. Calling Redact twice on the same already-redacted text is a
// no-op: tokens already in the text are recognized and skipped, never
// re-tokenized.
func (e *Engine) Redact(ctx context.Context, text string) (string, *Report, error) {
	if text == "" {
		report := NewReport()
		e.lastReport = report
		return text, report, nil
	}

	report := NewReport()
	result := text

	if e.gitleaksDetector != nil {
		scrubbed, matches := e.applyGitleaks(result)
		result = scrubbed
		for _, m := range matches {
			report.Add(m)
		}
	}

	sorted := make([]patterns.Pattern, len(e.Patterns))
	copy(sorted, e.Patterns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return len(sorted[i].Regex.String()) > len(sorted[j].Regex.String())
	})

	for _, p := range sorted {
		if !e.Config.ShouldApply(p) {
			continue
		}

		applied, matches, timedOut, err := e.applyPatternWithTimeout(ctx, result, p)
		if err != nil {
			return "", nil, fmt.Errorf("engine: pattern %q: %w", p.Name, err)
		}
		if timedOut {
			report.Warnings = append(report.Warnings, fmt.Sprintf("pattern %q timed out and was skipped", p.Name))
			continue
		}
		result = applied
		for _, m := range matches {
			report.Add(m)
		}
	}

	result = e.PathAnonymizer.Anonymize(result)

	e.lastReport = report
	return result, report, nil
}

// applyPatternWithTimeout races a single pattern's CPU-bound match-and-
// replace work against ctx and PatternTimeout. On timeout the goroutine is
// abandoned, not killed — Go has no safe way to preempt a running
// goroutine — but its eventual result is discarded into a buffered channel
// so it can't leak or block.
func (e *Engine) applyPatternWithTimeout(ctx context.Context, text string, p patterns.Pattern) (string, []Match, bool, error) {
	if e.PatternTimeout <= 0 {
		out, matches, err := e.applyPattern(text, p)
		return out, matches, false, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.PatternTimeout)
	defer cancel()

	type outcome struct {
		text    string
		matches []Match
		err     error
	}
	done := make(chan outcome, 1)

	g, _ := errgroup.WithContext(timeoutCtx)
	g.Go(func() error {
		out, matches, err := e.applyPattern(text, p)
		done <- outcome{text: out, matches: matches, err: err}
		return err
	})

	select {
	case <-timeoutCtx.Done():
		return text, nil, true, nil
	case o := <-done:
		return o.text, o.matches, false, o.err
	}
}

// applyPattern runs one pattern's regex over text and replaces every
// distinct secret it finds. Matches are collected first and replaced
// second so an earlier replacement's token text can never be re-matched
// by the same pattern within this call.
func (e *Engine) applyPattern(text string, p patterns.Pattern) (string, []Match, error) {
	type candidate struct {
		secret string
		token  string
	}

	locs := p.Regex.FindAllStringSubmatchIndex(text, -1)
	var candidates []candidate

	for _, loc := range locs {
		secret := submatchText(text, loc, p.CaptureGroup)
		if secret == "" || len(secret) < MinSecretLength {
			continue
		}
		if tokenizer.IsToken(secret) {
			continue
		}
		if p.Validate != nil && !p.Validate(secret) {
			continue
		}

		allowed, err := e.Config.Allow(p, secret)
		if err != nil {
			return text, nil, err
		}
		if !allowed {
			continue
		}

		token := e.Tokenizer.Tokenize(secret, p.Category)
		candidates = append(candidates, candidate{secret: secret, token: token})
	}

	result := text
	var matches []Match
	for _, c := range candidates {
		if !strings.Contains(result, c.secret) {
			continue
		}
		result = strings.ReplaceAll(result, c.secret, c.token)
		matches = append(matches, Match{
			Original:    c.secret,
			Token:       c.token,
			Category:    p.Category,
			PatternName: p.Name,
		})
	}

	return result, matches, nil
}

// submatchText extracts the text for captureGroup from a
// FindAllStringSubmatchIndex location slice, falling back to the whole
// match when the group is 0 or didn't participate.
func submatchText(text string, loc []int, captureGroup int) string {
	if captureGroup <= 0 {
		return text[loc[0]:loc[1]]
	}
	gi := captureGroup * 2
	if gi+1 >= len(loc) || loc[gi] < 0 {
		return text[loc[0]:loc[1]]
	}
	return text[loc[gi]:loc[gi+1]]
}

// VerifyRedaction reports the names of any high-priority patterns that
// still match unredacted text within text. A non-empty result means a
// leak slipped through Redact.
func (e *Engine) VerifyRedaction(text string) []string {
	var leaks []string
	for _, p := range e.Patterns {
		if _, ok := patterns.HighPriorityNames[p.Name]; !ok {
			continue
		}
		for _, m := range p.Regex.FindAllString(text, -1) {
			if !tokenizer.IsToken(m) {
				leaks = append(leaks, p.Name)
				break
			}
		}
	}
	return leaks
}

// GetSaltHash exposes the tokenizer's salt hash for bundle metadata.
func (e *Engine) GetSaltHash() string {
	return e.Tokenizer.GetSaltHash()
}

// RedactionSummary returns the category counts from the most recent Redact
// call.
func (e *Engine) RedactionSummary() map[string]int {
	if e.lastReport == nil {
		return map[string]int{}
	}
	return e.lastReport.Summary()
}
