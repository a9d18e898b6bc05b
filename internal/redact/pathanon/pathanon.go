// Package pathanon strips usernames, home directories and ephemeral
// filesystem paths out of captured text while keeping enough structure to
// debug with.
package pathanon

import (
	"os"
	"os/user"
	"regexp"
	"runtime"
	"strings"
)

// tempPatterns match OS-specific scratch directories. Order matters: more
// specific patterns (pytest's per-test dirs) must run before the generic
// /tmp/... catch-all.
var tempPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/var/folders/[^/]+/[^/]+/[^/]+`),
	regexp.MustCompile(`/tmp/pytest-of-[^/]+`),
	regexp.MustCompile(`/tmp/[^/\s]+`),
	regexp.MustCompile(`/private/var/folders/[^/]+/[^/]+/[^/]+`),
	regexp.MustCompile(`(?i)C:\\Users\\[^\\]+\\AppData\\Local\\Temp\\[^\\]+`),
	regexp.MustCompile(`(?i)C:\\Windows\\Temp\\[^\\]+`),
	regexp.MustCompile(`/run/user/\d+/[^/]+`),
}

var sitePackagesPattern = regexp.MustCompile(`[/\\](?:site-packages|dist-packages)[/\\]`)

var venvPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[/\\]\.venv[/\\]lib[/\\]python\d+\.\d+[/\\]`),
	regexp.MustCompile(`[/\\]venv[/\\]lib[/\\]python\d+\.\d+[/\\]`),
	regexp.MustCompile(`[/\\]\.virtualenvs[/\\][^/\\]+[/\\]lib[/\\]python\d+\.\d+[/\\]`),
	regexp.MustCompile(`[/\\]envs[/\\][^/\\]+[/\\]lib[/\\]python\d+\.\d+[/\\]`),
}

var runUserUIDPattern = regexp.MustCompile(`(/run/user/)(\d+)(/|$)`)

// Anonymizer rewrites filesystem paths found in text. Every stage is
// independently toggleable; the zero value with Username/HomeDir unset
// anonymizes nothing.
type Anonymizer struct {
	ProjectRoot string

	Username string
	HomeDir  string

	AnonymizeHome         bool
	AnonymizeUsername     bool
	AnonymizeTemp         bool
	AnonymizeSitePackages bool
	AnonymizeVenv         bool

	usernamePatterns []*regexp.Regexp
}

// New creates an Anonymizer populated from the current process's
// environment (current user, home directory), matching the Python
// original's create_default_anonymizer().
func New(projectRoot string) *Anonymizer {
	a := &Anonymizer{
		ProjectRoot:           projectRoot,
		Username:              currentUsername(),
		HomeDir:               currentHomeDir(),
		AnonymizeHome:         true,
		AnonymizeUsername:     true,
		AnonymizeTemp:         true,
		AnonymizeSitePackages: true,
		AnonymizeVenv:         true,
	}
	a.compileUsernamePatterns()
	return a
}

func currentUsername() string {
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	if v := os.Getenv("USERNAME"); v != "" {
		return v
	}
	return "user"
}

func currentHomeDir() string {
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return u.HomeDir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return ""
}

func (a *Anonymizer) compileUsernamePatterns() {
	if a.Username == "" {
		a.usernamePatterns = nil
		return
	}
	escaped := regexp.QuoteMeta(a.Username)
	a.usernamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(/home/)(` + escaped + `)(/|$)`),
		regexp.MustCompile(`(/Users/)(` + escaped + `)(/|$)`),
		regexp.MustCompile(`(\\Users\\)(` + escaped + `)(\\|$)`),
	}
}

// Anonymize rewrites every recognized path fragment in text. Stage order
// mirrors the Python original: project root, venv, site-packages, temp
// dirs, home dir, username/uid, most specific to least specific.
func (a *Anonymizer) Anonymize(text string) string {
	if text == "" {
		return text
	}

	result := text

	if a.ProjectRoot != "" {
		result = strings.ReplaceAll(result, a.ProjectRoot, "<PROJECT>")
		if runtime.GOOS == "windows" {
			result = strings.ReplaceAll(result, strings.ReplaceAll(a.ProjectRoot, "/", `\`), "<PROJECT>")
		}
	}

	if a.AnonymizeVenv {
		result = a.anonymizeVenv(result)
	}

	if a.AnonymizeSitePackages {
		result = a.anonymizeSitePackages(result)
	}

	if a.AnonymizeTemp {
		result = a.anonymizeTemp(result)
	}

	if a.AnonymizeHome && a.HomeDir != "" {
		result = a.anonymizeHome(result)
	}

	if a.AnonymizeUsername && a.Username != "" {
		result = a.anonymizeUsername(result)
	}

	return result
}

// AnonymizePath is a convenience wrapper for anonymizing a single path
// value rather than an arbitrary text blob.
func (a *Anonymizer) AnonymizePath(path string) string {
	return a.Anonymize(path)
}

func (a *Anonymizer) anonymizeHome(text string) string {
	result := strings.ReplaceAll(text, a.HomeDir, "~")
	if runtime.GOOS == "windows" {
		result = strings.ReplaceAll(result, strings.ReplaceAll(a.HomeDir, "/", `\`), "~")
	}
	return result
}

func (a *Anonymizer) anonymizeUsername(text string) string {
	result := text
	for _, re := range a.usernamePatterns {
		result = re.ReplaceAllString(result, "${1}<USER>${3}")
	}
	result = runUserUIDPattern.ReplaceAllString(result, "${1}<UID>${3}")
	return result
}

func (a *Anonymizer) anonymizeTemp(text string) string {
	result := text
	for _, re := range tempPatterns {
		result = re.ReplaceAllString(result, "<TMPDIR>")
	}
	return result
}

func (a *Anonymizer) anonymizeSitePackages(text string) string {
	return sitePackagesPattern.ReplaceAllStringFunc(text, func(match string) string {
		sep := string(match[0])
		return sep + "<SITE_PACKAGES>" + sep
	})
}

func (a *Anonymizer) anonymizeVenv(text string) string {
	result := text
	for _, re := range venvPatterns {
		result = re.ReplaceAllString(result, "/<VENV>/")
	}
	return result
}
