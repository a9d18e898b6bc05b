package bugsafeerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_MessagesContainKeyFields(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"BundleNotFoundError", &BundleNotFoundError{Path: "bug.bugbundle"}, []string{"bug.bugbundle"}},
		{"BundleCorruptError", &BundleCorruptError{Path: "bug.bugbundle", Reason: "missing manifest"}, []string{"bug.bugbundle", "missing manifest"}},
		{"BundleSchemaError", &BundleSchemaError{Path: "bug.bugbundle", Fields: []FieldError{{Path: "$.metadata.version", Reason: "required"}}}, []string{"bug.bugbundle", "1 field"}},
		{"BundleIntegrityError", &BundleIntegrityError{Path: "bug.bugbundle", Expected: "abc", Actual: "def"}, []string{"abc", "def"}},
		{"BundleVersionError", &BundleVersionError{Path: "bug.bugbundle", Version: "9.9"}, []string{"9.9"}},
		{"BundleSizeError", &BundleSizeError{Size: 2000, Limit: 1000}, []string{"2000", "1000"}},
		{"AttachmentNotFoundError", &AttachmentNotFoundError{Path: "bug.bugbundle", Name: "trace.log"}, []string{"trace.log", "bug.bugbundle"}},
		{"AttachmentInvalidError", &AttachmentInvalidError{Name: "huge.bin", Reason: "too large"}, []string{"huge.bin", "too large"}},
		{"SecurityError", &SecurityError{Path: "bug.bugbundle", Member: "../../etc/passwd"}, []string{"../../etc/passwd"}},
		{"PatternComplexityError", &PatternComplexityError{Name: "custom", Length: 2000, Limit: 1000}, []string{"custom", "2000", "1000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestBundleParseError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &BundleParseError{Path: "bug.bugbundle", Member: "manifest.json", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "manifest.json")
}

func TestErrors_AreDistinguishableWithErrorsAs(t *testing.T) {
	var err error = &BundleNotFoundError{Path: "x"}

	var notFound *BundleNotFoundError
	assert.True(t, errors.As(err, &notFound))

	var corrupt *BundleCorruptError
	assert.False(t, errors.As(err, &corrupt))
}
