package transcription

import (
	"fmt"

	"github.com/kbukum/wavscribe/errors"
)

// Outcome is the terminal result of a run: either a transcript or an error,
// never both. Build one with Succeeded or Failed.
type Outcome struct {
	transcript Transcript
	utterances []Utterance
	err        *errors.AppError
}

// Succeeded returns a successful outcome.
func Succeeded(t Transcript, utterances []Utterance) Outcome {
	if t.Segments == nil {
		t.Segments = []Segment{}
	}
	return Outcome{transcript: t, utterances: utterances}
}

// Failed returns a failed outcome. Plain errors become INTERNAL_ERROR.
func Failed(err error) Outcome {
	appErr := errors.From(err)
	if appErr == nil {
		appErr = errors.Internal(fmt.Errorf("transcription failed without an error"))
	}
	return Outcome{err: appErr}
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool { return o.err == nil }

// Transcript returns the transcript of a successful run.
func (o Outcome) Transcript() Transcript { return o.transcript }

// Utterances returns the collected utterances of a successful run.
func (o Outcome) Utterances() []Utterance { return o.utterances }

// Err returns the error of a failed run, or nil.
func (o Outcome) Err() *errors.AppError { return o.err }
