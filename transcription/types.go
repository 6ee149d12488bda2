package transcription

import (
	"strings"

	"github.com/kbukum/wavscribe/recognizer"
)

// Request holds the parameters of one transcription run.
type Request struct {
	// AudioPath is the path to the WAV recording.
	AudioPath string `json:"audio_path" validate:"required"`
	// ModelPath is the recognition model directory. Empty selects the
	// transcriber's default.
	ModelPath string `json:"model_path,omitempty"`
	// ChunkFrames is the number of frames fed per engine call. Zero selects
	// a five second window; at most audio.MaxChunkFrames.
	ChunkFrames int `json:"chunk_frames,omitempty" validate:"gte=0,lte=16777216"`
}

// Utterance is one non-empty recognition result and the stream position, in
// seconds, at which it was retrieved.
type Utterance struct {
	Result recognizer.Result
	Time   float64
}

// Segment is a time-aligned portion of a transcript.
type Segment struct {
	ID    int               `json:"id"`
	Start float64           `json:"start"`
	End   float64           `json:"end"`
	Text  string            `json:"text"`
	Words []recognizer.Word `json:"words"`
}

// Transcript is the result of a successful run.
type Transcript struct {
	Segments []Segment `json:"segments"`
	FullText string    `json:"full_text"`
}

// Text re-derives the full text from the segments.
func (t Transcript) Text() string {
	texts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		texts[i] = s.Text
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}
