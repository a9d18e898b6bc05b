// Package patterns is the catalog of built-in secret detection patterns.
package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

// Priority ranks how aggressively a pattern should be applied. Higher
// priority patterns are tried first and survive a stricter min-priority
// floor.
type Priority int

const (
	PriorityDisabled Priority = 0
	PriorityOptional Priority = 60
	PriorityLow      Priority = 70
	PriorityMedium   Priority = 80
	PriorityHigh     Priority = 90
	PriorityCritical Priority = 100
)

// Pattern is a single secret detection rule. Immutable once built by
// New or CreateCustom.
type Pattern struct {
	Name         string
	Regex        *regexp.Regexp
	Category     string
	Priority     Priority
	CaptureGroup int
	Description  string

	// Validate, if set, is an extra semantic filter run on a candidate
	// match after the regex matches it. Go's RE2 engine has no lookaround,
	// so patterns that need one (ip_public excluding loopback/unspecified
	// addresses) fall back to a regex plus a narrow Go predicate instead.
	Validate func(string) bool
}

func mustCompile(name, expr string, flags ...string) *regexp.Regexp {
	prefix := ""
	for _, f := range flags {
		prefix += f
	}
	if prefix != "" {
		expr = "(?" + prefix + ")" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		panic("patterns: bad builtin regex " + name + ": " + err.Error())
	}
	return re
}

// highPriority holds the always-redact, high-confidence patterns (P100/P90).
var highPriority = []Pattern{
	{
		Name:        "aws_access_key",
		Regex:       mustCompile("aws_access_key", `AKIA[0-9A-Z]{16}`),
		Category:    "AWS_KEY",
		Priority:    PriorityCritical,
		Description: "AWS Access Key ID",
	},
	{
		Name:         "aws_secret_key",
		Regex:        mustCompile("aws_secret_key", `(?:[^A-Za-z0-9/+=]|^)([A-Za-z0-9/+=]{40})(?:[^A-Za-z0-9/+=]|$)`),
		Category:     "AWS_SECRET",
		Priority:     PriorityHigh,
		CaptureGroup: 1,
		Description:  "AWS Secret Access Key (context-dependent)",
	},
	{
		Name:        "aws_session_token",
		Regex:       mustCompile("aws_session_token", `FwoGZX[A-Za-z0-9/+=]{100,}`),
		Category:    "AWS_TOKEN",
		Priority:    PriorityCritical,
		Description: "AWS Session Token",
	},
	{
		Name:        "github_token",
		Regex:       mustCompile("github_token", `gh[pousr]_[A-Za-z0-9_]{36,255}`),
		Category:    "GITHUB_TOKEN",
		Priority:    PriorityCritical,
		Description: "GitHub Personal Access Token",
	},
	{
		Name:        "github_oauth",
		Regex:       mustCompile("github_oauth", `gho_[A-Za-z0-9]{36}`),
		Category:    "GITHUB_TOKEN",
		Priority:    PriorityCritical,
		Description: "GitHub OAuth Token",
	},
	{
		Name:        "gitlab_token",
		Regex:       mustCompile("gitlab_token", `glpat-[A-Za-z0-9_-]{20,}`),
		Category:    "GITLAB_TOKEN",
		Priority:    PriorityCritical,
		Description: "GitLab Personal Access Token",
	},
	{
		Name:        "slack_token",
		Regex:       mustCompile("slack_token", `xox[baprs]-[A-Za-z0-9-]{10,}`),
		Category:    "SLACK_TOKEN",
		Priority:    PriorityCritical,
		Description: "Slack Bot/User Token",
	},
	{
		Name:        "slack_webhook",
		Regex:       mustCompile("slack_webhook", `https://hooks\.slack\.com/services/T[A-Z0-9]+/B[A-Z0-9]+/[A-Za-z0-9]+`),
		Category:    "SLACK_WEBHOOK",
		Priority:    PriorityCritical,
		Description: "Slack Webhook URL",
	},
	{
		Name:        "discord_webhook",
		Regex:       mustCompile("discord_webhook", `https://discord(?:app)?\.com/api/webhooks/\d+/[A-Za-z0-9_-]+`),
		Category:    "DISCORD_WEBHOOK",
		Priority:    PriorityCritical,
		Description: "Discord Webhook URL",
	},
	{
		Name:        "private_key_block",
		Regex:       mustCompile("private_key_block", `-----BEGIN\s+(?:[A-Z\s]+)?PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:[A-Z\s]+)?PRIVATE\s+KEY-----`, "m"),
		Category:    "PRIVATE_KEY",
		Priority:    PriorityCritical,
		Description: "Private Key Block (PEM format)",
	},
	{
		Name:        "azure_connection_string",
		Regex:       mustCompile("azure_connection_string", `DefaultEndpointsProtocol=https?;AccountName=[^;]+;AccountKey=[A-Za-z0-9+/=]+`, "i"),
		Category:    "AZURE_KEY",
		Priority:    PriorityCritical,
		Description: "Azure Storage Connection String",
	},
	{
		Name:        "gcp_api_key",
		Regex:       mustCompile("gcp_api_key", `AIza[0-9A-Za-z_-]{35}`),
		Category:    "GCP_KEY",
		Priority:    PriorityCritical,
		Description: "Google Cloud API Key",
	},
	{
		Name:        "stripe_secret_key",
		Regex:       mustCompile("stripe_secret_key", `sk_live_[A-Za-z0-9]{24,}`),
		Category:    "STRIPE_KEY",
		Priority:    PriorityCritical,
		Description: "Stripe Secret Key",
	},
	{
		Name:        "stripe_restricted_key",
		Regex:       mustCompile("stripe_restricted_key", `rk_live_[A-Za-z0-9]{24,}`),
		Category:    "STRIPE_KEY",
		Priority:    PriorityCritical,
		Description: "Stripe Restricted Key",
	},
	{
		Name:        "npm_token",
		Regex:       mustCompile("npm_token", `npm_[A-Za-z0-9]{36}`),
		Category:    "NPM_TOKEN",
		Priority:    PriorityCritical,
		Description: "NPM Auth Token",
	},
	{
		Name:        "pypi_token",
		Regex:       mustCompile("pypi_token", `pypi-AgE[A-Za-z0-9_-]{50,}`),
		Category:    "PYPI_TOKEN",
		Priority:    PriorityCritical,
		Description: "PyPI API Token",
	},
	{
		Name:        "sendgrid_key",
		Regex:       mustCompile("sendgrid_key", `SG\.[A-Za-z0-9_-]{22}\.[A-Za-z0-9_-]{43}`),
		Category:    "SENDGRID_KEY",
		Priority:    PriorityCritical,
		Description: "SendGrid API Key",
	},
	{
		Name:        "twilio_key",
		Regex:       mustCompile("twilio_key", `SK[a-f0-9]{32}`),
		Category:    "TWILIO_KEY",
		Priority:    PriorityCritical,
		Description: "Twilio API Key",
	},
	{
		Name:        "mailchimp_key",
		Regex:       mustCompile("mailchimp_key", `[a-f0-9]{32}-us\d{1,2}`),
		Category:    "MAILCHIMP_KEY",
		Priority:    PriorityCritical,
		Description: "Mailchimp API Key",
	},
}

// mediumPriority holds context-dependent patterns that need the surrounding
// text to make sense (P80/P90).
var mediumPriority = []Pattern{
	{
		Name:        "jwt",
		Regex:       mustCompile("jwt", `eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]+`),
		Category:    "JWT",
		Priority:    PriorityHigh,
		Description: "JSON Web Token",
	},
	{
		Name:         "bearer_token",
		Regex:        mustCompile("bearer_token", `bearer\s+([A-Za-z0-9_-]{20,})`, "i"),
		Category:     "BEARER_TOKEN",
		Priority:     PriorityHigh,
		CaptureGroup: 1,
		Description:  "Bearer Authorization Token",
	},
	{
		Name:         "basic_auth",
		Regex:        mustCompile("basic_auth", `basic\s+([A-Za-z0-9+/=]{20,})`, "i"),
		Category:     "BASIC_AUTH",
		Priority:     PriorityHigh,
		CaptureGroup: 1,
		Description:  "Basic Authorization Header",
	},
	{
		Name:        "connection_string_postgres",
		Regex:       mustCompile("connection_string_postgres", `postgres(?:ql)?://[^\s"'<>]+`, "i"),
		Category:    "CONNECTION_STRING",
		Priority:    PriorityHigh,
		Description: "PostgreSQL Connection String",
	},
	{
		Name:        "connection_string_mysql",
		Regex:       mustCompile("connection_string_mysql", `mysql://[^\s"'<>]+`, "i"),
		Category:    "CONNECTION_STRING",
		Priority:    PriorityHigh,
		Description: "MySQL Connection String",
	},
	{
		Name:        "connection_string_mongodb",
		Regex:       mustCompile("connection_string_mongodb", `mongodb(?:\+srv)?://[^\s"'<>]+`, "i"),
		Category:    "CONNECTION_STRING",
		Priority:    PriorityHigh,
		Description: "MongoDB Connection String",
	},
	{
		Name:        "connection_string_redis",
		Regex:       mustCompile("connection_string_redis", `redis://[^\s"'<>]+`, "i"),
		Category:    "CONNECTION_STRING",
		Priority:    PriorityHigh,
		Description: "Redis Connection String",
	},
	{
		Name:         "api_key_generic",
		Regex:        mustCompile("api_key_generic", `(api[_-]?key|apikey|access[_-]?token|auth[_-]?token)["'\s:=]+["']?([A-Za-z0-9_-]{16,})["']?`, "i"),
		Category:     "API_KEY",
		Priority:     PriorityMedium,
		CaptureGroup: 2,
		Description:  "Generic API Key in config",
	},
	{
		Name:         "password_field",
		Regex:        mustCompile("password_field", `(password|passwd|pwd|secret)["'\s:=]+["']?([^\s"',}{:\]]{4,})["']?`, "i"),
		Category:     "PASSWORD",
		Priority:     PriorityMedium,
		CaptureGroup: 2,
		Description:  "Password in config/logs",
	},
	{
		Name:         "authorization_header",
		Regex:        mustCompile("authorization_header", `authorization["'\s:=]+["']?([^\s"'\n]{10,})["']?`, "i"),
		Category:     "AUTH_HEADER",
		Priority:     PriorityMedium,
		CaptureGroup: 1,
		Description:  "Authorization Header Value",
	},
}

// lowPriority holds optional, configurable-off patterns (P0-P70).
var lowPriority = []Pattern{
	{
		Name:        "ip_private",
		Regex:       mustCompile("ip_private", `\b(?:10\.\d{1,3}\.\d{1,3}\.\d{1,3}|192\.168\.\d{1,3}\.\d{1,3}|172\.(?:1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3})\b`),
		Category:    "IP_PRIVATE",
		Priority:    PriorityLow,
		Description: "Private IP Address",
	},
	{
		Name:        "ip_public",
		Regex:       mustCompile("ip_public", `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		Category:    "IP_PUBLIC",
		Priority:    PriorityOptional,
		Description: "Public IP Address",
		Validate:    isPublicIPv4,
	},
	{
		Name:        "email",
		Regex:       mustCompile("email", `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		Category:    "EMAIL",
		Priority:    PriorityOptional,
		Description: "Email Address",
	},
	{
		Name:        "hostname_internal",
		Regex:       mustCompile("hostname_internal", `\b[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.(?:internal|local|corp|lan|intranet)\b`, "i"),
		Category:    "HOSTNAME",
		Priority:    PriorityOptional,
		Description: "Internal Hostname",
	},
	{
		Name:        "uuid",
		Regex:       mustCompile("uuid", `\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`, "i"),
		Category:    "UUID",
		Priority:    PriorityDisabled,
		Description: "UUID (often needed for debugging)",
	},
}

// isPublicIPv4 rejects the private, loopback and unspecified ranges the
// Python original excludes via negative lookahead. RE2 has no lookahead, so
// the exclusion happens here instead of in the regex.
func isPublicIPv4(addr string) bool {
	octets := strings.Split(addr, ".")
	if len(octets) != 4 {
		return false
	}
	first, err := strconv.Atoi(octets[0])
	if err != nil {
		return false
	}
	second, err := strconv.Atoi(octets[1])
	if err != nil {
		return false
	}
	switch {
	case first == 10:
		return false
	case first == 127:
		return false
	case first == 0:
		return false
	case first == 192 && second == 168:
		return false
	case first == 172 && second >= 16 && second <= 31:
		return false
	}
	return true
}

// Default is every built-in pattern, high to low priority, in registration
// order (the engine re-sorts by priority before applying them).
var Default = buildDefault()

func buildDefault() []Pattern {
	all := make([]Pattern, 0, len(highPriority)+len(mediumPriority)+len(lowPriority))
	all = append(all, highPriority...)
	all = append(all, mediumPriority...)
	all = append(all, lowPriority...)
	return all
}

// HighPriorityNames is the set of pattern names considered critical enough
// that a leftover match after redaction means a leak, not noise.
var HighPriorityNames = buildHighPriorityNames()

func buildHighPriorityNames() map[string]struct{} {
	names := make(map[string]struct{}, len(highPriority))
	for _, p := range highPriority {
		names[p.Name] = struct{}{}
	}
	return names
}

// ByPriority returns the default patterns with priority >= min, sorted by
// priority descending.
func ByPriority(min Priority) []Pattern {
	out := make([]Pattern, 0, len(Default))
	for _, p := range Default {
		if p.Priority >= min {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Priority < out[j].Priority; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ByName returns the default pattern with the given name, if any.
func ByName(name string) (Pattern, bool) {
	for _, p := range Default {
		if p.Name == name {
			return p, true
		}
	}
	return Pattern{}, false
}

// CreateCustom compiles a user-supplied pattern. flags is applied as an
// inline regex flag group (e.g. "i" for case-insensitive).
func CreateCustom(name, expr, category string, priority Priority, captureGroup int, flags string) (Pattern, error) {
	full := expr
	if flags != "" {
		full = "(?" + flags + ")" + expr
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{
		Name:         name,
		Regex:        re,
		Category:     category,
		Priority:     priority,
		CaptureGroup: captureGroup,
	}, nil
}
