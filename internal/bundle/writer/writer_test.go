package writer

import (
	"archive/zip"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
	"github.com/bugsafe/bugsafe/internal/bundle/schema"
)

func testBundle() *schema.Bundle {
	return schema.NewBundle(schema.CaptureOutput{
		Stdout:   "hello out",
		Stderr:   "hello err",
		ExitCode: 1,
		Command:  []string{"make", "test"},
	}, "salthash")
}

func TestCreate_WritesManifestChecksumAndStreams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	err := Create(testBundle(), path, Options{})
	require.NoError(t, err)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names[ManifestFilename])
	assert.True(t, names[ChecksumFilename])
	assert.True(t, names[StdoutFilename])
	assert.True(t, names[StderrFilename])
}

func TestCreate_SkipsEmptyStdoutStderrEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	bundle := schema.NewBundle(schema.CaptureOutput{Command: []string{"x"}}, "")
	require.NoError(t, Create(bundle, path, Options{}))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		assert.NotEqual(t, StdoutFilename, f.Name)
		assert.NotEqual(t, StderrFilename, f.Name)
	}
}

func TestCreate_RefusesToOverwriteWithoutFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	require.NoError(t, Create(testBundle(), path, Options{}))
	err := Create(testBundle(), path, Options{})
	assert.Error(t, err)
}

func TestCreate_OverwriteFlagAllowsReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")

	require.NoError(t, Create(testBundle(), path, Options{}))
	err := Create(testBundle(), path, Options{Overwrite: true})
	assert.NoError(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips directory", "../../etc/passwd.txt", "_.._etc_passwd.txt"},
		{"strips unsafe chars", "weird name!.log", "weird_name_.log"},
		{"empty becomes unnamed", "", "unnamed"},
		{"already safe", "trace-01.log", "trace-01.log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeFilename(tt.input)
			assert.NotContains(t, got, "/")
			assert.NotContains(t, got, "..")
			if tt.input == "" {
				assert.Equal(t, "unnamed", got)
			}
		})
	}
}

func TestEnsureUniqueName_AppendsCounterOnCollision(t *testing.T) {
	existing := map[string]struct{}{"trace.log": {}, "trace_1.log": {}}
	got := ensureUniqueName("trace.log", existing)
	assert.Equal(t, "trace_2.log", got)
}

func TestEnsureUniqueName_NoCollisionReturnsAsIs(t *testing.T) {
	existing := map[string]struct{}{}
	assert.Equal(t, "trace.log", ensureUniqueName("trace.log", existing))
}

func TestAddAttachment_WritesAndReturnsFinalName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")
	require.NoError(t, Create(testBundle(), path, Options{}))

	finalName, err := AddAttachment(path, "extra.log", []byte("more context"))
	require.NoError(t, err)
	assert.Equal(t, "extra.log", finalName)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	found := false
	for _, f := range zr.File {
		if f.Name == AttachmentsDir+"/extra.log" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAddAttachment_RejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")
	require.NoError(t, Create(testBundle(), path, Options{}))

	_, err := AddAttachment(path, "payload.exe", []byte("x"))
	require.Error(t, err)

	var invalidErr *bugsafeerrors.AttachmentInvalidError
	assert.ErrorAs(t, err, &invalidErr)
}

func TestAddAttachment_RejectsOversizedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")
	require.NoError(t, Create(testBundle(), path, Options{}))

	oversized := make([]byte, MaxAttachmentSize+1)
	_, err := AddAttachment(path, "big.log", oversized)
	require.Error(t, err)

	var invalidErr *bugsafeerrors.AttachmentInvalidError
	assert.ErrorAs(t, err, &invalidErr)
}

func TestAddAttachment_DedupesNameOnCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bug.bugbundle")
	require.NoError(t, Create(testBundle(), path, Options{}))

	_, err := AddAttachment(path, "note.log", []byte("first"))
	require.NoError(t, err)

	finalName, err := AddAttachment(path, "note.log", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, "note_1.log", finalName)
}

func TestAddAttachment_BundleNotFound(t *testing.T) {
	_, err := AddAttachment("/nonexistent/bug.bugbundle", "x.log", []byte("x"))
	assert.Error(t, err)
}
