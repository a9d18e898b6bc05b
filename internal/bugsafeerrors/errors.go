// Package bugsafeerrors defines the discriminated error taxonomy for
// bundle and redaction operations: one concrete type per failure kind so
// callers can switch on errors.As instead of parsing messages.
package bugsafeerrors

import "fmt"

// BundleNotFoundError means the requested bundle file does not exist.
type BundleNotFoundError struct {
	Path string
}

func (e *BundleNotFoundError) Error() string {
	return fmt.Sprintf("bundle not found: %s", e.Path)
}

// BundleCorruptError means the bundle's zip container is malformed or
// missing a required member.
type BundleCorruptError struct {
	Path   string
	Reason string
}

func (e *BundleCorruptError) Error() string {
	return fmt.Sprintf("bundle corrupt: %s: %s", e.Path, e.Reason)
}

// BundleParseError means a member of the bundle could not be decoded.
type BundleParseError struct {
	Path   string
	Member string
	Cause  error
}

func (e *BundleParseError) Error() string {
	return fmt.Sprintf("bundle parse error: %s (%s): %v", e.Path, e.Member, e.Cause)
}

func (e *BundleParseError) Unwrap() error {
	return e.Cause
}

// FieldError names one schema validation failure.
type FieldError struct {
	Path   string
	Reason string
}

// BundleSchemaError means the manifest parsed as JSON but failed schema
// validation.
type BundleSchemaError struct {
	Path   string
	Fields []FieldError
}

func (e *BundleSchemaError) Error() string {
	return fmt.Sprintf("bundle schema error: %s: %d field(s) invalid", e.Path, len(e.Fields))
}

// BundleIntegrityError means the manifest's checksum does not match its
// recorded checksum.
type BundleIntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *BundleIntegrityError) Error() string {
	return fmt.Sprintf("bundle integrity check failed: %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// BundleVersionError means the manifest declares a schema version this
// build has no migration for.
type BundleVersionError struct {
	Path    string
	Version string
}

func (e *BundleVersionError) Error() string {
	return fmt.Sprintf("bundle version error: %s: unsupported version %q", e.Path, e.Version)
}

// BundleSizeError means a bundle (or a write to one) would exceed the
// configured size ceiling.
type BundleSizeError struct {
	Size  int64
	Limit int64
}

func (e *BundleSizeError) Error() string {
	return fmt.Sprintf("bundle size (%d bytes) exceeds limit (%d bytes)", e.Size, e.Limit)
}

// AttachmentNotFoundError means a named attachment isn't present in the
// bundle.
type AttachmentNotFoundError struct {
	Path string
	Name string
}

func (e *AttachmentNotFoundError) Error() string {
	return fmt.Sprintf("attachment not found: %s in %s", e.Name, e.Path)
}

// AttachmentInvalidError means an attachment failed a validation rule
// (extension, size, or count ceiling) before being written.
type AttachmentInvalidError struct {
	Name   string
	Reason string
}

func (e *AttachmentInvalidError) Error() string {
	return fmt.Sprintf("attachment invalid: %s: %s", e.Name, e.Reason)
}

// SecurityError means a bundle member's name attempted to escape the
// extraction directory. It takes precedence over every other check: a
// caller must never act on bundle contents once this has been raised.
type SecurityError struct {
	Path   string
	Member string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security error: %s: unsafe member path %q", e.Path, e.Member)
}

// PatternComplexityError means a custom regex pattern's source exceeds the
// configured length ceiling and was rejected before being compiled.
type PatternComplexityError struct {
	Name   string
	Length int
	Limit  int
}

func (e *PatternComplexityError) Error() string {
	return fmt.Sprintf("pattern %q too complex: %d chars exceeds %d limit", e.Name, e.Length, e.Limit)
}
