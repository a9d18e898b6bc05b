// Package writer creates and appends to .bugbundle archives: a zip
// container holding a manifest, its checksum, captured stdout/stderr, and
// optional attachments.
package writer

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
	"github.com/bugsafe/bugsafe/internal/bundle/schema"
)

const (
	// MaxBundleSize caps the manifest+stdout+stderr+checksum payload
	// written by Create; attachments added later are not retroactively
	// counted against it.
	MaxBundleSize = 50 * 1024 * 1024
	// MaxAttachmentSize caps a single attachment's content.
	MaxAttachmentSize = 10 * 1024 * 1024
	// MaxAttachments caps how many attachments a bundle may hold.
	MaxAttachments = 20

	ManifestFilename  = "manifest.json"
	StdoutFilename    = "stdout.txt"
	StderrFilename    = "stderr.txt"
	ChecksumFilename  = "checksum.sha256"
	AttachmentsDir    = "attachments"
)

// AllowedExtensions are the only attachment extensions Create/AddAttachment
// will accept, keeping a bundle to plain-text diagnostic material.
var AllowedExtensions = map[string]struct{}{
	".txt": {}, ".log": {}, ".yaml": {}, ".yml": {}, ".json": {},
	".toml": {}, ".ini": {}, ".cfg": {}, ".md": {}, ".rst": {},
}

func computeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sanitizeFilename strips directory components and any character outside
// the safe alphanumeric/._- set, the same rule writer.py applies before an
// attachment name ever touches the filesystem.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")

	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	sanitized := b.String()
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}

// ensureUniqueName appends _1, _2, ... before the extension until name is
// not already present in existing.
func ensureUniqueName(name string, existing map[string]struct{}) string {
	if _, taken := existing[name]; !taken {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", base, counter, ext)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

// Options controls Create's overwrite behavior.
type Options struct {
	Overwrite bool
}

// Create writes a new .bugbundle archive at path containing bundle's
// manifest, its checksum, and any non-empty stdout/stderr. The total
// payload size is checked against MaxBundleSize before anything is
// written, so a too-large bundle never leaves a partial file behind.
func Create(bundle *schema.Bundle, path string, opts Options) error {
	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("bundle already exists: %s", path)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("bundle: failed to create directory: %w", err)
		}
	}

	manifestBytes, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle: failed to marshal manifest: %w", err)
	}

	checksum := computeChecksum(manifestBytes)
	checksumContent := fmt.Sprintf("%s  %s\n", checksum, ManifestFilename)

	stdout := bundle.Capture.Stdout
	stderr := bundle.Capture.Stderr

	totalSize := int64(len(manifestBytes)) + int64(len(stdout)) + int64(len(stderr)) + int64(len(checksumContent))
	if totalSize > MaxBundleSize {
		return &bugsafeerrors.BundleSizeError{Size: totalSize, Limit: MaxBundleSize}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bundle: failed to write bundle: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	if err := writeEntry(zw, ManifestFilename, manifestBytes); err != nil {
		return err
	}
	if err := writeEntry(zw, ChecksumFilename, []byte(checksumContent)); err != nil {
		return err
	}
	if stdout != "" {
		if err := writeEntry(zw, StdoutFilename, []byte(stdout)); err != nil {
			return err
		}
	}
	if stderr != "" {
		if err := writeEntry(zw, StderrFilename, []byte(stderr)); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("bundle: failed to write bundle: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("bundle: failed to write bundle: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("bundle: failed to write bundle: %w", err)
	}
	return nil
}

// AddAttachment appends a named attachment to an existing bundle, enforcing
// the extension allowlist, per-attachment size ceiling and the bundle-wide
// attachment count ceiling. Returns the final filename used, which may
// differ from name if it collided with an existing attachment.
func AddAttachment(bundlePath, name string, content []byte) (string, error) {
	if _, err := os.Stat(bundlePath); err != nil {
		return "", fmt.Errorf("bundle not found: %s", bundlePath)
	}

	safeName := sanitizeFilename(name)
	ext := strings.ToLower(filepath.Ext(safeName))
	if _, allowed := AllowedExtensions[ext]; !allowed {
		return "", &bugsafeerrors.AttachmentInvalidError{
			Name:   name,
			Reason: fmt.Sprintf("extension %q not allowed", ext),
		}
	}

	if len(content) > MaxAttachmentSize {
		return "", &bugsafeerrors.AttachmentInvalidError{
			Name:   name,
			Reason: fmt.Sprintf("size (%d bytes) exceeds limit (%d bytes)", len(content), MaxAttachmentSize),
		}
	}

	zr, err := zip.OpenReader(bundlePath)
	if err != nil {
		return "", fmt.Errorf("invalid bundle file: %w", err)
	}
	existing := make(map[string]struct{})
	entries := make([]*zip.File, 0, len(zr.File))
	prefix := AttachmentsDir + "/"
	for _, zf := range zr.File {
		entries = append(entries, zf)
		if strings.HasPrefix(zf.Name, prefix) {
			existing[strings.TrimPrefix(zf.Name, prefix)] = struct{}{}
		}
	}
	zr.Close()

	if len(existing) >= MaxAttachments {
		return "", &bugsafeerrors.AttachmentInvalidError{
			Name:   name,
			Reason: fmt.Sprintf("maximum attachments (%d) reached", MaxAttachments),
		}
	}

	finalName := ensureUniqueName(safeName, existing)
	attachmentPath := prefix + finalName

	tmpPath := bundlePath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("bundle: failed to add attachment: %w", err)
	}
	zw := zip.NewWriter(out)

	for _, zf := range entries {
		if err := copyZipEntry(zw, zf); err != nil {
			out.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("bundle: failed to add attachment: %w", err)
		}
	}
	if err := writeEntry(zw, attachmentPath, content); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("bundle: failed to add attachment: %w", err)
	}
	out.Close()

	if err := os.Rename(tmpPath, bundlePath); err != nil {
		return "", fmt.Errorf("bundle: failed to add attachment: %w", err)
	}

	return finalName, nil
}

func copyZipEntry(zw *zip.Writer, zf *zip.File) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := zw.Create(zf.Name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, rc)
	return err
}
