package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeAxisNotFound, "valid double buffer axis not found"),
			expected: "[AXIS_NOT_FOUND] valid double buffer axis not found",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeStorage, "upload failed", errors.New("network timeout")),
			expected: "[STORAGE_ERROR] upload failed: network timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeReport, "report failed", underlying)

	unwrapped := err.Unwrap()
	assert.Equal(t, underlying, unwrapped)
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeStageDepthConflict, "error 1")
	err2 := New(CodeStageDepthConflict, "error 2")
	err3 := New(CodeAxisNotFound, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsConfigError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "config error", err: ErrConfigError, expected: true},
		{name: "wrapped config error", err: Wrap(CodeConfigError, "bad config", errors.New("missing field")), expected: true},
		{name: "other error", err: ErrParseError, expected: false},
		{name: "nil error", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsConfigError(tt.err))
		})
	}
}

func TestIsParseError(t *testing.T) {
	assert.True(t, IsParseError(ErrParseError))
	assert.False(t, IsParseError(ErrConfigError))
}

func TestIsFatal(t *testing.T) {
	fatal := []string{
		CodeInvalidAnnotation, CodeAxisNotFound, CodeStageDepthConflict,
		CodeParallelTypeConflict, CodeSelfMapping, CodeMissingDoubleBufferLoop,
		CodeUnsupportedLoopShape,
	}
	for _, code := range fatal {
		assert.True(t, IsFatal(code), code)
	}
	assert.False(t, IsFatal(CodeConfigError))
	assert.False(t, IsFatal(CodeUnknown))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeAxisNotFound, "axis missing"),
			expected: CodeAxisNotFound,
		},
		{
			name:     "wrapped app error",
			err:      Wrap(CodeStorage, "upload", errors.New("inner")),
			expected: CodeStorage,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: CodeUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeStageDepthConflict, "depth conflict on axis k"),
			expected: "depth conflict on axis k",
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: "standard error",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorMessage(tt.err))
		})
	}
}
