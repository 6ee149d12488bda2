package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ModelInstructions tells the user where to acquire a recognition model.
const ModelInstructions = "Download model from https://alphacephei.com/vosk/models"

// formatRequirement is the constraint every input recording must meet.
const formatRequirement = "Audio file must be mono WAV format at 16 bit PCM"

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Instructions returns the acquisition hint attached to a MODEL_NOT_FOUND
// error, or "" for every other error.
func (e *AppError) Instructions() string {
	if v, ok := e.Details["instructions"].(string); ok {
		return v
	}
	return ""
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Constructors ---

// FileNotFound creates a new AppError for an audio path that does not resolve
// to a readable file.
func FileNotFound(path string) *AppError {
	return &AppError{
		Code: ErrCodeFileNotFound, Message: fmt.Sprintf("Audio file not found: %s", path),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"path": path},
	}
}

// ModelNotFound creates a new AppError for a missing model artifact. The
// acquisition hint is carried in the "instructions" detail.
func ModelNotFound(path string) *AppError {
	return &AppError{
		Code: ErrCodeModelNotFound, Message: fmt.Sprintf("Model not found: %s", path),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"path": path, "instructions": ModelInstructions},
	}
}

// UnsupportedFormat creates a new AppError for audio that violates the
// mono/16-bit/uncompressed requirement. violation names the failing constraint
// in plain words, e.g. "got 2 channels".
func UnsupportedFormat(constraint string, expected, actual any, violation string) *AppError {
	msg := formatRequirement
	if violation != "" {
		msg = fmt.Sprintf("%s: %s", formatRequirement, violation)
	}
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: msg,
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"constraint": constraint, "expected": expected, "actual": actual},
	}
}

// InvalidContainer creates a new AppError for a file that is not a readable
// RIFF/WAVE container.
func InvalidContainer(reason string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("%s: %s", formatRequirement, reason),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"constraint": "container"},
	}
}

// EngineFailure creates a new AppError for an error raised by the recognition
// engine. The engine's message is surfaced verbatim.
func EngineFailure(operation string, cause error) *AppError {
	msg := "recognition engine failure"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: ErrCodeEngineFailure, Message: msg,
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Usage creates a new AppError for a malformed command line. The message is
// shown to the user as is.
func Usage(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates a new AppError for an unexpected failure. The cause's
// message is kept as the user-facing message.
func Internal(cause error) *AppError {
	msg := "An unexpected error occurred."
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: ErrCodeInternal, Message: msg,
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// From converts any error into an *AppError. AppErrors anywhere in the chain
// are returned as is; everything else becomes INTERNAL_ERROR. From(nil) is nil.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
