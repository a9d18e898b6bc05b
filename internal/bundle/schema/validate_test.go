package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
)

func validManifestJSON() []byte {
	return []byte(`{
		"metadata": {
			"bundle_id": "550e8400-e29b-41d4-a716-446655440000",
			"version": "1.0.0",
			"created_at": "2026-07-31T00:00:00Z",
			"bugsafe_version": "0.1.0"
		},
		"capture": {
			"stdout": "",
			"stderr": "",
			"exit_code": 1,
			"command": ["make", "test"]
		},
		"redaction_report": {"AWS_KEY": 1}
	}`)
}

func TestValidateManifest_ValidManifestPasses(t *testing.T) {
	err := ValidateManifest("bug.bugbundle", validManifestJSON())
	assert.NoError(t, err)
}

func TestValidateManifest_MissingRequiredTopLevelField(t *testing.T) {
	raw := []byte(`{"metadata": {"bundle_id": "x", "version": "1.0.0", "created_at": "now", "bugsafe_version": "0.1.0"}, "capture": {"stdout": "", "stderr": "", "exit_code": 0, "command": []}}`)

	err := ValidateManifest("bug.bugbundle", raw)
	require.Error(t, err)

	var schemaErr *bugsafeerrors.BundleSchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.NotEmpty(t, schemaErr.Fields)
}

func TestValidateManifest_WrongFieldType(t *testing.T) {
	raw := []byte(`{
		"metadata": {"bundle_id": "x", "version": "1.0.0", "created_at": "now", "bugsafe_version": "0.1.0"},
		"capture": {"stdout": "", "stderr": "", "exit_code": "not-a-number", "command": []},
		"redaction_report": {}
	}`)

	err := ValidateManifest("bug.bugbundle", raw)
	require.Error(t, err)

	var schemaErr *bugsafeerrors.BundleSchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestValidateManifest_InvalidJSONReturnsParseError(t *testing.T) {
	err := ValidateManifest("bug.bugbundle", []byte(`{not valid json`))
	require.Error(t, err)

	var parseErr *bugsafeerrors.BundleParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestFormatFieldErrors_JoinsWithSemicolons(t *testing.T) {
	fields := []bugsafeerrors.FieldError{
		{Path: "$.metadata.version", Reason: "required"},
		{Path: "$.capture.exit_code", Reason: "must be integer"},
	}
	out := FormatFieldErrors(fields)
	assert.Contains(t, out, "$.metadata.version: required")
	assert.Contains(t, out, "$.capture.exit_code: must be integer")
}
