// Package validation validates transcription requests and configuration
// sections.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Failures are returned as
// INVALID_INPUT AppErrors whose "fields" detail lists every failing field.
//
// # Struct Tag Validation
//
//	type Request struct {
//	    AudioPath   string `json:"audio_path" validate:"required"`
//	    ChunkFrames int    `json:"chunk_frames" validate:"gte=0"`
//	}
//	err := validation.Validate(req)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.OneOf("format", cfg.Format, []string{"transcript", "envelope"})
//	err := v.Validate()
package validation
