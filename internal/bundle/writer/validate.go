package writer

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ValidationResult reports whether a bundle is structurally sound. Unlike
// reader.ReadBundle, Validate never returns an error for a malformed
// bundle — every problem is collected into Errors or Warnings instead.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate inspects a bundle file without fully decoding its manifest into
// a schema.Bundle, the same lightweight sanity check the CLI runs before
// handing a bundle to anything that assumes it's well-formed.
func Validate(path string) ValidationResult {
	if _, err := os.Stat(path); err != nil {
		return ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("bundle not found: %s", path)}}
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("invalid zip file: %v", err)}}
	}
	defer zr.Close()

	var errs, warnings []string

	names := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		names[zf.Name] = zf
	}

	manifestFile, hasManifest := names[ManifestFilename]
	if !hasManifest {
		errs = append(errs, fmt.Sprintf("missing %s", ManifestFilename))
	}
	checksumFile, hasChecksum := names[ChecksumFilename]
	if !hasChecksum {
		warnings = append(warnings, fmt.Sprintf("missing %s", ChecksumFilename))
	}

	var manifestBytes []byte
	if hasManifest {
		manifestBytes, err = readZipFile(manifestFile)
		if err != nil {
			errs = append(errs, fmt.Sprintf("error reading manifest: %v", err))
		}
	}

	if hasManifest && hasChecksum && manifestBytes != nil {
		checksumBytes, err := readZipFile(checksumFile)
		if err != nil {
			errs = append(errs, fmt.Sprintf("error reading checksum: %v", err))
		} else {
			expected := computeChecksum(manifestBytes)
			if !strings.Contains(string(checksumBytes), expected) {
				errs = append(errs, "checksum mismatch - bundle may be corrupted")
			}
		}
	}

	if hasManifest && manifestBytes != nil {
		var doc any
		if err := json.Unmarshal(manifestBytes, &doc); err != nil {
			errs = append(errs, fmt.Sprintf("invalid JSON in manifest: %v", err))
		}
	}

	attachmentCount := 0
	for name := range names {
		if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
			errs = append(errs, fmt.Sprintf("suspicious path in bundle: %s", name))
		}
		if strings.HasPrefix(name, AttachmentsDir+"/") {
			attachmentCount++
		}
	}
	if attachmentCount > MaxAttachments {
		warnings = append(warnings, fmt.Sprintf("too many attachments: %d > %d", attachmentCount, MaxAttachments))
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
