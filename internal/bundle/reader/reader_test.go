package reader

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
	"github.com/bugsafe/bugsafe/internal/bundle/schema"
	"github.com/bugsafe/bugsafe/internal/bundle/writer"
)

func createTestBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	bundle := schema.NewBundle(schema.CaptureOutput{
		Stdout:   "output here",
		Stderr:   "",
		ExitCode: 1,
		Command:  []string{"make", "test"},
	}, "salthash")

	require.NoError(t, writer.Create(bundle, path, writer.Options{}))
	return path
}

func TestReadBundle_RoundTripsWriterOutput(t *testing.T) {
	path := createTestBundle(t)

	bundle, err := ReadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, schema.BundleVersion, bundle.Metadata.Version)
	assert.Equal(t, 1, bundle.Capture.ExitCode)
	assert.Equal(t, []string{"make", "test"}, bundle.Capture.Command)
}

func TestReadBundle_MissingFileReturnsBundleNotFoundError(t *testing.T) {
	_, err := ReadBundle("/nonexistent/bug.bugbundle")
	var notFound *bugsafeerrors.BundleNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestReadBundle_NotAZipReturnsBundleCorruptError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := ReadBundle(path)
	var corrupt *bugsafeerrors.BundleCorruptError
	assert.ErrorAs(t, err, &corrupt)
}

func TestReadBundle_MissingManifestReturnsBundleCorruptError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("other.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ReadBundle(path)
	var corrupt *bugsafeerrors.BundleCorruptError
	assert.ErrorAs(t, err, &corrupt)
}

func TestReadBundle_PathTraversalMemberReturnsSecurityError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../../etc/passwd")
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ReadBundle(path)
	var secErr *bugsafeerrors.SecurityError
	assert.ErrorAs(t, err, &secErr)
}

func TestReadBundle_UnknownVersionReturnsBundleVersionError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create(ManifestFilename)
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"metadata":{"version":"99.0.0"},"capture":{},"redaction_report":{}}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ReadBundle(path)
	var verErr *bugsafeerrors.BundleVersionError
	assert.ErrorAs(t, err, &verErr)
}

func TestReadBundle_SchemaViolationReturnsBundleSchemaError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create(ManifestFilename)
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"metadata":{"version":"1.0.0"}}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ReadBundle(path)
	var schemaErr *bugsafeerrors.BundleSchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestListAttachments_ReturnsSortedNames(t *testing.T) {
	path := createTestBundle(t)

	_, err := writer.AddAttachment(path, "zzz.log", []byte("z"))
	require.NoError(t, err)
	_, err = writer.AddAttachment(path, "aaa.log", []byte("a"))
	require.NoError(t, err)

	attachments, err := ListAttachments(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa.log", "zzz.log"}, attachments)
}

func TestListAttachments_EmptyWhenNoneAdded(t *testing.T) {
	path := createTestBundle(t)
	attachments, err := ListAttachments(path)
	require.NoError(t, err)
	assert.Empty(t, attachments)
}

func TestGetAttachment_ReturnsContent(t *testing.T) {
	path := createTestBundle(t)
	_, err := writer.AddAttachment(path, "note.log", []byte("extra context"))
	require.NoError(t, err)

	content, err := GetAttachment(path, "note.log")
	require.NoError(t, err)
	assert.Equal(t, "extra context", content)
}

func TestGetAttachment_NotFoundReturnsAttachmentNotFoundError(t *testing.T) {
	path := createTestBundle(t)
	_, err := GetAttachment(path, "missing.log")
	var notFound *bugsafeerrors.AttachmentNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetAttachment_PathTraversalNameReturnsSecurityError(t *testing.T) {
	path := createTestBundle(t)
	_, err := GetAttachment(path, "../../etc/passwd")
	var secErr *bugsafeerrors.SecurityError
	assert.ErrorAs(t, err, &secErr)
}

func TestGetAttachment_URLEncodedTraversalNameReturnsSecurityError(t *testing.T) {
	path := createTestBundle(t)
	_, err := GetAttachment(path, "%2e%2e%2f%2e%2e%2fetc%2fpasswd")
	var secErr *bugsafeerrors.SecurityError
	assert.ErrorAs(t, err, &secErr)
}

func TestVerifyIntegrity_ValidBundlePasses(t *testing.T) {
	path := createTestBundle(t)
	ok, err := VerifyIntegrity(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyIntegrity_MissingFileReturnsError(t *testing.T) {
	_, err := VerifyIntegrity("/nonexistent/bug.bugbundle")
	var notFound *bugsafeerrors.BundleNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestVerifyIntegrity_TamperedManifestFails(t *testing.T) {
	path := createTestBundle(t)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	entries := make(map[string][]byte)
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[zf.Name] = content
	}
	zr.Close()

	entries[ManifestFilename] = append(entries[ManifestFilename], []byte("tampered")...)

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	ok, err := VerifyIntegrity(path)
	require.NoError(t, err)
	assert.False(t, ok)
}
