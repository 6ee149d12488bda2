package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors
const (
	// ErrCodeFileNotFound indicates the audio path does not resolve to a readable file.
	ErrCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"
	// ErrCodeUnsupportedFormat indicates the audio container is not mono 16-bit PCM WAV.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeInvalidInput indicates a request or configuration value is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Engine errors
const (
	// ErrCodeModelNotFound indicates the model path does not resolve to a loadable artifact.
	ErrCodeModelNotFound ErrorCode = "MODEL_NOT_FOUND"
	// ErrCodeEngineFailure indicates the recognition engine raised an error.
	ErrCodeEngineFailure ErrorCode = "ENGINE_FAILURE"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// No transcription failure is retried automatically.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeFileNotFound:      false,
	ErrCodeUnsupportedFormat: false,
	ErrCodeInvalidInput:      false,
	ErrCodeModelNotFound:     false,
	ErrCodeEngineFailure:     false,
	ErrCodeInternal:          false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
