// Package reader reads and validates .bugbundle archives written by
// bundle/writer, returning a schema.Bundle or a bugsafeerrors value
// describing exactly what went wrong.
package reader

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
	"github.com/bugsafe/bugsafe/internal/bundle/schema"
)

const (
	ManifestFilename = "manifest.json"
	StdoutFilename   = "stdout.txt"
	StderrFilename   = "stderr.txt"
	ChecksumFilename = "checksum.sha256"
	AttachmentsDir   = "attachments"
)

// checkPathSafety rejects any zip member name that could escape an
// extraction directory. Checked before anything else touches a bundle's
// contents, since a SecurityError must pre-empt every other failure mode.
func checkPathSafety(name string) error {
	if strings.Contains(name, "..") {
		return &bugsafeerrors.SecurityError{Member: name}
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return &bugsafeerrors.SecurityError{Member: name}
	}
	return nil
}

// checkAttachmentNameSafety guards the getter API, where name comes from a
// caller rather than from the zip's own member list: it must also catch
// traversal sequences that are URL-encoded to reach ".." or a leading slash,
// not just the literal characters.
func checkAttachmentNameSafety(name string) error {
	if err := checkPathSafety(name); err != nil {
		return err
	}
	if decoded, err := url.QueryUnescape(name); err == nil && decoded != name {
		if err := checkPathSafety(decoded); err != nil {
			return err
		}
	}
	return nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ReadBundle opens, validates, and decodes a .bugbundle archive. Every zip
// member name is checked for path traversal before the manifest is even
// read; only then does it check for the manifest's presence, parse its
// JSON, migrate it to the current schema version, and validate it against
// the manifest schema.
func ReadBundle(path string) (*schema.Bundle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &bugsafeerrors.BundleNotFoundError{Path: path}
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &bugsafeerrors.BundleCorruptError{Path: path, Reason: err.Error()}
	}
	defer zr.Close()

	names := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		if err := checkPathSafety(zf.Name); err != nil {
			return nil, err
		}
		names[zf.Name] = zf
	}

	manifestFile, ok := names[ManifestFilename]
	if !ok {
		return nil, &bugsafeerrors.BundleCorruptError{Path: path, Reason: fmt.Sprintf("missing %s", ManifestFilename)}
	}

	manifestBytes, err := readZipFile(manifestFile)
	if err != nil {
		return nil, &bugsafeerrors.BundleCorruptError{Path: path, Reason: err.Error()}
	}

	var raw map[string]any
	if err := json.Unmarshal(manifestBytes, &raw); err != nil {
		return nil, &bugsafeerrors.BundleParseError{Path: path, Member: ManifestFilename, Cause: err}
	}

	version := schema.BundleVersion
	if meta, ok := raw["metadata"].(map[string]any); ok {
		if v, ok := meta["version"].(string); ok && v != "" {
			version = v
		}
	}

	migrate, ok := schema.VersionMigrations[version]
	if !ok {
		return nil, &bugsafeerrors.BundleVersionError{Path: path, Version: version}
	}
	migrated := migrate(raw)

	migratedBytes, err := json.Marshal(migrated)
	if err != nil {
		return nil, &bugsafeerrors.BundleParseError{Path: path, Member: ManifestFilename, Cause: err}
	}

	if err := schema.ValidateManifest(path, migratedBytes); err != nil {
		return nil, err
	}

	var bundle schema.Bundle
	if err := json.Unmarshal(migratedBytes, &bundle); err != nil {
		return nil, &bugsafeerrors.BundleParseError{Path: path, Member: ManifestFilename, Cause: err}
	}

	return &bundle, nil
}

// ListAttachments returns the sorted names of every attachment stored in
// the bundle, stripped of the leading "attachments/" prefix.
func ListAttachments(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &bugsafeerrors.BundleNotFoundError{Path: path}
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &bugsafeerrors.BundleCorruptError{Path: path, Reason: err.Error()}
	}
	defer zr.Close()

	prefix := AttachmentsDir + "/"
	var attachments []string
	for _, zf := range zr.File {
		if strings.HasPrefix(zf.Name, prefix) && len(zf.Name) > len(prefix) {
			attachments = append(attachments, zf.Name[len(prefix):])
		}
	}
	sort.Strings(attachments)
	return attachments, nil
}

// GetAttachment returns one attachment's content as a UTF-8 string. name
// is checked for path traversal before it is ever joined onto the
// attachments/ prefix.
func GetAttachment(path, name string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", &bugsafeerrors.BundleNotFoundError{Path: path}
	}
	if err := checkAttachmentNameSafety(name); err != nil {
		return "", err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", &bugsafeerrors.BundleCorruptError{Path: path, Reason: err.Error()}
	}
	defer zr.Close()

	attachmentPath := AttachmentsDir + "/" + name
	var target *zip.File
	for _, zf := range zr.File {
		if zf.Name == attachmentPath {
			target = zf
			break
		}
	}
	if target == nil {
		return "", &bugsafeerrors.AttachmentNotFoundError{Path: path, Name: name}
	}

	content, err := readZipFile(target)
	if err != nil {
		return "", &bugsafeerrors.BundleCorruptError{Path: path, Reason: err.Error()}
	}
	if !utf8.Valid(content) {
		return "", &bugsafeerrors.BundleParseError{
			Path:   path,
			Member: attachmentPath,
			Cause:  fmt.Errorf("attachment is not valid UTF-8"),
		}
	}
	return string(content), nil
}

// VerifyIntegrity reports whether a bundle's manifest checksum matches its
// recorded checksum.sha256. It never errors on a malformed zip or missing
// checksum file — a missing checksum is treated as a legacy bundle and
// considered valid, mirroring the original tool's lenient behavior; only a
// missing bundle file is an error.
func VerifyIntegrity(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, &bugsafeerrors.BundleNotFoundError{Path: path}
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return false, nil
	}
	defer zr.Close()

	names := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		names[zf.Name] = zf
	}

	manifestFile, ok := names[ManifestFilename]
	if !ok {
		return false, nil
	}

	checksumFile, ok := names[ChecksumFilename]
	if !ok {
		return true, nil
	}

	manifestBytes, err := readZipFile(manifestFile)
	if err != nil {
		return false, nil
	}
	checksumBytes, err := readZipFile(checksumFile)
	if err != nil {
		return false, nil
	}

	expected := computeChecksum(manifestBytes)
	return strings.Contains(string(checksumBytes), expected), nil
}

func computeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
