package recognizer

import (
	"context"

	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/provider"
)

// DefaultEngine is the engine used when none is configured.
const DefaultEngine = "vosk-server"

// Engine opens recognition sessions.
type Engine interface {
	provider.Provider

	// NewSession opens a session for audio at sampleRate using model.
	NewSession(ctx context.Context, model *Model, sampleRate int, opts SessionOptions) (Session, error)
}

// Session holds the engine state for one recording. Sessions are not shared
// between recordings and are not safe for concurrent use.
type Session interface {
	// Feed passes one chunk of PCM audio to the engine. It returns true when
	// the engine closed an utterance, which must then be retrieved with Drain.
	Feed(ctx context.Context, chunk []byte) (bool, error)
	// Drain returns the utterance closed by the last Feed.
	Drain(ctx context.Context) (Result, error)
	// Flush returns the trailing utterance after the last chunk. It is
	// called once per session.
	Flush(ctx context.Context) (Result, error)
	// Close releases the session.
	Close() error
}

// NewRegistry creates a new provider registry for recognition engines.
func NewRegistry() *provider.Registry[Engine] {
	return provider.NewRegistry[Engine]()
}

// Fail wraps an engine error as ENGINE_FAILURE, keeping the engine's message.
// Errors that already carry an application error code are returned unchanged.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.EngineFailure(op, err)
}
