package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCustomPatterns_ParsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	content := `
patterns:
  - name: internal_tool_token
    regex: "itt_[a-z0-9]{10}"
    category: INTERNAL
    priority: 90
    capture_group: 0
    flags: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadCustomPatterns(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "internal_tool_token", got[0].Name)
	assert.Equal(t, "INTERNAL", got[0].Category)
	assert.True(t, got[0].Regex.MatchString("itt_abcdefghij"))
}

func TestLoadCustomPatterns_MissingFileReturnsError(t *testing.T) {
	_, err := LoadCustomPatterns("/nonexistent/patterns.yaml")
	assert.Error(t, err)
}

func TestLoadCustomPatterns_InvalidRegexReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	content := `
patterns:
  - name: bad
    regex: "(unterminated"
    category: CUSTOM
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadCustomPatterns(path)
	assert.Error(t, err)
}

func TestPatternsConfig_TranslatesRedactionSettings(t *testing.T) {
	cfg := Default()
	cfg.Redaction.RedactEmails = false
	cfg.Redaction.RedactUUIDs = true

	pc, err := cfg.PatternsConfig()
	require.NoError(t, err)
	assert.False(t, pc.RedactEmails)
	assert.True(t, pc.RedactUUIDs)
}

func TestPatternsConfig_LoadsCustomPatternsFileWhenSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	content := `
patterns:
  - name: custom_one
    regex: "abc[0-9]+"
    category: CUSTOM
    priority: 80
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := Default()
	cfg.Redaction.CustomPatternsFile = path

	pc, err := cfg.PatternsConfig()
	require.NoError(t, err)
	require.Len(t, pc.CustomPatterns, 1)
	assert.Equal(t, "custom_one", pc.CustomPatterns[0].Name)
}

func TestPatternsConfig_NoCustomFileLeavesCustomPatternsEmpty(t *testing.T) {
	cfg := Default()
	pc, err := cfg.PatternsConfig()
	require.NoError(t, err)
	assert.Empty(t, pc.CustomPatterns)
}
