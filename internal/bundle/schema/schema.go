// Package schema defines the in-memory shape of a bug bundle's manifest:
// frozen-after-construction structs serialized to canonical JSON in
// declared field order.
package schema

import (
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
)

// BundleVersion is the manifest schema version this build writes.
const BundleVersion = "1.0.0"

// BugsafeVersion is stamped into every manifest's metadata so a bundle
// records which build produced it.
const BugsafeVersion = "0.1.0"

// Frame is one stack frame in a captured traceback.
type Frame struct {
	File     string            `json:"file"`
	Line     int               `json:"line"`
	Function string            `json:"function,omitempty"`
	Code     string            `json:"code,omitempty"`
	Locals   map[string]string `json:"locals,omitempty"`
}

// Traceback is a structured, language-agnostic exception trace. Chained
// holds the cause/context chain, outermost exception first.
type Traceback struct {
	ExceptionType string      `json:"exception_type"`
	Message       string      `json:"message"`
	Frames        []Frame     `json:"frames"`
	Chained       []Traceback `json:"chained,omitempty"`
}

// CaptureOutput is the (already-redacted) output of the captured
// subprocess invocation.
type CaptureOutput struct {
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	ExitCode   int      `json:"exit_code"`
	DurationMs int64    `json:"duration_ms"`
	Command    []string `json:"command"`
	TimedOut   bool     `json:"timed_out"`
	Truncated  bool     `json:"truncated"`
}

// GitInfo describes the repository state the capture ran in, if any.
type GitInfo struct {
	Ref       string `json:"ref,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Dirty     *bool  `json:"dirty,omitempty"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// PackageInfo identifies one installed dependency.
type PackageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Environment snapshots the runtime the capture executed in.
type Environment struct {
	RuntimeVersion string            `json:"runtime_version"`
	Executable     string            `json:"executable,omitempty"`
	Platform       string            `json:"platform,omitempty"`
	Packages       []PackageInfo     `json:"packages,omitempty"`
	EnvVars        map[string]string `json:"env_vars,omitempty"`
	Cwd            string            `json:"cwd,omitempty"`
	Git            *GitInfo          `json:"git,omitempty"`
	Virtualenv     bool              `json:"virtualenv"`
	InContainer    bool              `json:"in_container"`
	CIDetected     bool              `json:"ci_detected"`
}

// Metadata identifies a bundle and the tool version/redaction salt that
// produced it.
type Metadata struct {
	BundleID          uuid.UUID `json:"bundle_id"`
	Version           string    `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	BugsafeVersion    string    `json:"bugsafe_version"`
	RedactionSaltHash string    `json:"redaction_salt_hash"`
}

// Bundle is the complete, JSON-serializable manifest written to
// manifest.json inside a .bugbundle archive.
type Bundle struct {
	Metadata        Metadata       `json:"metadata"`
	Capture         CaptureOutput  `json:"capture"`
	Traceback       *Traceback     `json:"traceback,omitempty"`
	Environment     *Environment   `json:"environment,omitempty"`
	RedactionReport map[string]int `json:"redaction_report"`
}

// NewMetadata builds metadata for a newly created bundle.
func NewMetadata(saltHash string) Metadata {
	return Metadata{
		BundleID:          uuid.New(),
		Version:           BundleVersion,
		CreatedAt:         time.Now().UTC(),
		BugsafeVersion:    BugsafeVersion,
		RedactionSaltHash: saltHash,
	}
}

// NewBundle builds a Bundle with fresh metadata, ready to serialize.
func NewBundle(capture CaptureOutput, saltHash string) *Bundle {
	return &Bundle{
		Metadata:        NewMetadata(saltHash),
		Capture:         capture,
		RedactionReport: map[string]int{},
	}
}

// CheckVersionSupported reports whether version can be read by this build,
// using semver comparison against BundleVersion's major component: any
// manifest with the same major version is assumed forward-compatible,
// matching the additive-only migration contract in VersionMigrations.
func CheckVersionSupported(version string) error {
	if _, ok := VersionMigrations[version]; ok {
		return nil
	}

	manifestVer, err := semver.NewVersion(version)
	if err != nil {
		return &bugsafeerrors.BundleVersionError{Version: version}
	}
	current, err := semver.NewVersion(BundleVersion)
	if err != nil {
		return &bugsafeerrors.BundleVersionError{Version: version}
	}
	if manifestVer.Major() != current.Major() {
		return &bugsafeerrors.BundleVersionError{Version: version}
	}
	return nil
}
