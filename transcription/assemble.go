package transcription

import "github.com/kbukum/wavscribe/recognizer"

// Assemble builds a Transcript from utterances in the order they were
// produced. Segment i spans its first word's start to its last word's end;
// an utterance without word timings falls back to [i*window, (i+1)*window],
// where window is the chunk length in seconds. The fallback is an estimate
// that only matches the audio when utterances line up with chunks.
func Assemble(utterances []Utterance, window float64) Transcript {
	segments := make([]Segment, 0, len(utterances))
	for i, u := range utterances {
		words := append([]recognizer.Word{}, u.Result.Words...)
		seg := Segment{ID: i, Text: u.Result.Text, Words: words}
		if n := len(words); n > 0 {
			seg.Start = words[0].Start
			seg.End = words[n-1].End
		} else {
			seg.Start = float64(i) * window
			seg.End = float64(i+1) * window
		}
		segments = append(segments, seg)
	}
	t := Transcript{Segments: segments}
	t.FullText = t.Text()
	return t
}
