package endpoint

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/wavscribe/audio"
	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/report"
	"github.com/kbukum/wavscribe/server/middleware"
	"github.com/kbukum/wavscribe/transcription"
)

// Form fields and query parameters accepted by Transcribe.
const (
	FieldAudio      = "audio"
	FieldChunkSize  = "chunk_size"
	QueryFormat     = "format"
	uploadPattern   = "wavscribe-upload-*"
	uploadAudioName = "audio.wav"
)

// Transcriber runs one transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) transcription.Outcome
}

// Transcribe returns a handler that transcribes an uploaded WAV recording.
// The recording is sent as the multipart field "audio"; "chunk_size" sets
// frames per chunk. ?format=envelope selects the envelope document.
func Transcribe(t Transcriber, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := c.DefaultQuery(QueryFormat, report.FormatTranscript)

		req, cleanup, appErr := saveUpload(c)
		if appErr != nil {
			respond(c, format, transcription.Failed(appErr))
			return
		}
		defer cleanup()

		out := t.Transcribe(c.Request.Context(), req)
		if !out.OK() {
			log.Debug("transcription request failed", logger.Fields(
				logger.FieldCode, string(out.Err().Code),
				logger.FieldRequestID, c.GetString(middleware.ContextKeyRequestID),
			))
		}
		respond(c, format, out)
	}
}

func saveUpload(c *gin.Context) (transcription.Request, func(), *errors.AppError) {
	var req transcription.Request

	file, err := c.FormFile(FieldAudio)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			appErr := errors.InvalidInput(FieldAudio, "request body too large")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			return req, nil, appErr
		}
		return req, nil, errors.InvalidInput(FieldAudio, `multipart field "audio" is required`)
	}

	if v := c.PostForm(FieldChunkSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, nil, errors.InvalidInput(FieldChunkSize, "chunk_size must be a non-negative integer")
		}
		if n > audio.MaxChunkFrames {
			return req, nil, errors.InvalidInput(FieldChunkSize, fmt.Sprintf("chunk_size must be at most %d", audio.MaxChunkFrames))
		}
		req.ChunkFrames = n
	}

	dir, err := os.MkdirTemp("", uploadPattern)
	if err != nil {
		return req, nil, errors.Internal(err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	req.AudioPath = filepath.Join(dir, uploadAudioName)
	if err := c.SaveUploadedFile(file, req.AudioPath); err != nil {
		cleanup()
		return req, nil, errors.Internal(err)
	}
	return req, cleanup, nil
}

func respond(c *gin.Context, format string, out transcription.Outcome) {
	status := http.StatusOK
	if !out.OK() {
		status = out.Err().HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
	}

	switch {
	case format == report.FormatEnvelope:
		c.JSON(status, report.NewEnvelope(out))
	case out.OK():
		c.JSON(status, out.Transcript())
	default:
		c.JSON(status, out.Err().ToResponse())
	}
}
