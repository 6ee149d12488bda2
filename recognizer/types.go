package recognizer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/wavscribe/errors"
)

// DefaultModelPath is the model directory used when none is given.
const DefaultModelPath = "models/vosk-model-small-en-us-0.15"

// Word is one recognized word with its timing in seconds from the start of
// the recording.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// Result is a recognition result as produced by the engine. Words is only
// populated when the session was opened with word timings enabled.
type Result struct {
	Text  string `json:"text"`
	Words []Word `json:"result,omitempty"`
	// Final is set on the result returned by Flush.
	Final bool `json:"-"`
}

// Empty reports whether the result carries no text after trimming.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// SessionOptions configures a recognition session.
type SessionOptions struct {
	// Words requests per-word timings on utterance results.
	Words bool
	// PartialWords requests per-word timings on partial results.
	PartialWords bool
	// LogLevel is the session's own log verbosity. Empty keeps the
	// component logger's level.
	LogLevel string
}

// Model identifies a recognition model artifact on disk.
type Model struct {
	Path string
	Name string
}

// LoadModel resolves the model at path. It fails with MODEL_NOT_FOUND when
// nothing exists at path.
func LoadModel(path string) (*Model, error) {
	if path == "" {
		return nil, errors.ModelNotFound(path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.ModelNotFound(path).WithCause(err)
	}
	return &Model{Path: path, Name: filepath.Base(filepath.Clean(path))}, nil
}
