package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodannaError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	ce := New(ErrCodeIOFailure, "file not found: test.txt", originalErr)

	require.NotNil(t, ce)
	assert.Equal(t, originalErr, errors.Unwrap(ce))
	assert.True(t, errors.Is(ce, originalErr))
}

func TestCodannaError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		op       string
		path     string
		expected string
	}{
		{
			name:     "bare",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "with path",
			code:     ErrCodeIOFailure,
			message:  "file.go not found",
			op:       "index_file",
			path:     "file.go",
			expected: "[ERR_201_IO_FAILURE] file.go not found (index_file: file.go)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			if tt.op != "" {
				err.WithOperation(tt.op)
			}
			if tt.path != "" {
				err.WithPath(tt.path)
			}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestCodannaError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeIOFailure, "file A not found", nil)
	err2 := New(ErrCodeIOFailure, "file B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestCodannaError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeIOFailure, "file not found", nil)
	err2 := New(ErrCodeConfigNotFound, "config not found", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestCodannaError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeIOFailure, "file not found", nil)

	err = err.WithDetail("path", "/foo/bar.go")
	err = err.WithDetail("size", "1024")

	assert.Equal(t, "/foo/bar.go", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestCodannaError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeIOFailure, CategoryIO},
		{ErrCodeCorruption, CategoryIO},
		{ErrCodeResolutionDrop, CategoryResolution},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeDimensionMismatch, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeIdOverflow, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestCodannaError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeCorruption, SeverityFatal},
		{ErrCodeIdOverflow, SeverityFatal},
		{ErrCodeConcurrencyConflict, SeverityFatal},
		{ErrCodePolicyViolation, SeverityFatal},
		{ErrCodeResolutionDrop, SeverityWarning},
		{ErrCodeDimensionMismatch, SeverityWarning},
		{ErrCodeIOFailure, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestWrap_CreatesCodannaErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	ce := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, ce)
	assert.Equal(t, ErrCodeInternal, ce.Code)
	assert.Equal(t, "something went wrong", ce.Message)
	assert.Equal(t, originalErr, ce.Cause)
}

func TestIOFailure_CarriesOperationAndPath(t *testing.T) {
	err := IOFailure("index_file", "a/b.go", errors.New("disk error"))

	assert.Equal(t, CategoryIO, err.Category)
	assert.Equal(t, "index_file", err.Operation)
	assert.Equal(t, "a/b.go", err.Path)
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "corruption is fatal",
			err:      New(ErrCodeCorruption, "index corrupt", nil),
			expected: true,
		},
		{
			name:     "id overflow is fatal",
			err:      IdOverflow("SymbolCounter"),
			expected: true,
		},
		{
			name:     "io failure is not fatal",
			err:      New(ErrCodeIOFailure, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestIsRetryable_CoreTaxonomyHasNoRetryableCodes(t *testing.T) {
	assert.False(t, IsRetryable(New(ErrCodeIOFailure, "x", nil)))
	assert.False(t, IsRetryable(errors.New("standard error")))
	assert.False(t, IsRetryable(nil))
}
