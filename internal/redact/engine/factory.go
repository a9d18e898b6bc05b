package engine

import "github.com/bugsafe/bugsafe/internal/redact/patterns"

// Create builds a ready-to-use Engine rooted at projectRoot with the given
// pattern policy, gitleaks enabled and the default pattern timeout. It's
// the one-call path most callers want; New is there for callers that need
// to override timeout or disable gitleaks.
func Create(projectRoot string, cfg patterns.Config) (*Engine, error) {
	return New(cfg, Options{ProjectRoot: projectRoot})
}
