// Package report writes the single JSON document that ends every run and
// maps the outcome to a process exit status.
//
// Two formats are supported over the same transcription.Outcome:
//
//   - FormatTranscript: the indented transcript on success, or
//     {"error": ...} with "instructions" for a missing model.
//   - FormatEnvelope: {"success", "error", "results", "full_text"} for both
//     success and failure.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/recognizer"
	"github.com/kbukum/wavscribe/transcription"
)

// Output formats.
const (
	FormatTranscript = "transcript"
	FormatEnvelope   = "envelope"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTranscript, FormatEnvelope}

// Exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Envelope is the document written by FormatEnvelope.
type Envelope struct {
	Success  bool           `json:"success"`
	Error    *string        `json:"error"`
	Results  []EnvelopeItem `json:"results"`
	FullText string         `json:"full_text"`
}

// EnvelopeItem is one utterance in an Envelope.
type EnvelopeItem struct {
	Text   string            `json:"text"`
	Result []recognizer.Word `json:"result,omitempty"`
	Time   float64           `json:"time"`
}

// Reporter writes outcomes to w in one format.
type Reporter struct {
	w      io.Writer
	format string
}

// New creates a Reporter. Unknown formats fall back to FormatTranscript.
func New(w io.Writer, format string) *Reporter {
	if format != FormatEnvelope {
		format = FormatTranscript
	}
	return &Reporter{w: w, format: format}
}

// Format returns the reporter's output format.
func (r *Reporter) Format() string { return r.format }

// Report writes exactly one JSON document for out and returns the exit
// status. The document is encoded in full before anything is written.
func (r *Reporter) Report(out transcription.Outcome) int {
	var buf bytes.Buffer
	if err := r.encode(&buf, out); err != nil {
		buf.Reset()
		fallback := transcription.Failed(errors.Internal(fmt.Errorf("encode result: %w", err)))
		_ = r.encode(&buf, fallback)
		out = fallback
	}
	_, _ = r.w.Write(buf.Bytes())
	return ExitCode(out)
}

// ReportError reports err as a failed outcome.
func (r *Reporter) ReportError(err error) int {
	return r.Report(transcription.Failed(err))
}

func (r *Reporter) encode(w io.Writer, out transcription.Outcome) error {
	switch r.format {
	case FormatEnvelope:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(NewEnvelope(out))
	default:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if out.OK() {
			enc.SetIndent("", "  ")
			return enc.Encode(out.Transcript())
		}
		return enc.Encode(out.Err().ToResponse())
	}
}

// NewEnvelope converts out into an Envelope.
func NewEnvelope(out transcription.Outcome) Envelope {
	env := Envelope{Success: out.OK(), Results: []EnvelopeItem{}}
	if !out.OK() {
		msg := out.Err().Message
		env.Error = &msg
		return env
	}
	for _, u := range out.Utterances() {
		env.Results = append(env.Results, EnvelopeItem{
			Text:   u.Result.Text,
			Result: u.Result.Words,
			Time:   u.Time,
		})
	}
	env.FullText = out.Transcript().FullText
	return env
}

// ExitCode maps an outcome to a process exit status.
func ExitCode(out transcription.Outcome) int {
	if out.OK() {
		return ExitOK
	}
	return ExitFailure
}
