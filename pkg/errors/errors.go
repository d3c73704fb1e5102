// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown     = "UNKNOWN_ERROR"
	CodeConfigError = "CONFIG_ERROR"
	CodeParseError  = "PARSE_ERROR"
	CodeTimeout     = "TIMEOUT_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeStorage     = "STORAGE_ERROR"
	CodeReport      = "REPORT_ERROR"

	// CodeInvalidAnnotation: a tensor is flagged (circular-)buffered but
	// violates validation (compute-at, memory type, hasComputeWith,
	// producer position).
	CodeInvalidAnnotation = "INVALID_ANNOTATION"
	// CodeAxisNotFound: no valid double-buffer axis exists under the
	// selection rule.
	CodeAxisNotFound = "AXIS_NOT_FOUND"
	// CodeStageDepthConflict: two tensors mapped to the same LOOP-concrete
	// axis declare different stage depths.
	CodeStageDepthConflict = "STAGE_DEPTH_CONFLICT"
	// CodeParallelTypeConflict: a LOOP group contains two distinct
	// non-Serial parallel types.
	CodeParallelTypeConflict = "PARALLEL_TYPE_CONFLICT"
	// CodeSelfMapping: a TensorView has two of its own axes mapped
	// together in a mode that requires them distinct. Fatal unless the
	// pass is configured to allow it.
	CodeSelfMapping = "SELF_MAPPING"
	// CodeMissingDoubleBufferLoop: a buffered load exists but no
	// enclosing loop maps to its double-buffer axis.
	CodeMissingDoubleBufferLoop = "MISSING_DOUBLE_BUFFER_LOOP"
	// CodeUnsupportedLoopShape: the enclosing loop's start != 0, step !=
	// 1, or it is vectorized.
	CodeUnsupportedLoopShape = "UNSUPPORTED_LOOP_SHAPE"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrConfigError = New(CodeConfigError, "configuration error")
	ErrParseError  = New(CodeParseError, "parse error")
	ErrTimeout     = New(CodeTimeout, "operation timeout")
	ErrNotFound    = New(CodeNotFound, "resource not found")
	ErrStorage     = New(CodeStorage, "storage error")
	ErrReport      = New(CodeReport, "report error")
)

// IsConfigError checks if the error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigError)
}

// IsParseError checks if the error is a parse error.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParseError)
}

// IsFatal reports whether code is one of the pass's validation kinds that
// aborts compilation (every kind except SelfMapping is unconditionally
// fatal; SelfMapping is fatal unless the pass config allows it, which the
// caller has already decided before an AppError with this code is ever
// constructed).
func IsFatal(code string) bool {
	switch code {
	case CodeInvalidAnnotation, CodeAxisNotFound, CodeStageDepthConflict,
		CodeParallelTypeConflict, CodeSelfMapping, CodeMissingDoubleBufferLoop,
		CodeUnsupportedLoopShape:
		return true
	default:
		return false
	}
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
