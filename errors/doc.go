// Package errors provides the error taxonomy for transcription runs.
//
// Every failure a run can produce is an *AppError carrying a machine-readable
// code (FILE_NOT_FOUND, MODEL_NOT_FOUND, UNSUPPORTED_FORMAT, ENGINE_FAILURE,
// INVALID_INPUT, INTERNAL_ERROR), a user-facing message and optional details.
// The reporter and the HTTP surface render these without inspecting causes.
//
// # Usage
//
//	if _, err := os.Stat(path); err != nil {
//	    return errors.FileNotFound(path).WithCause(err)
//	}
//	appErr := errors.From(err) // any error -> *AppError
package errors
