// Package transcription turns a WAV recording into a timestamped transcript.
//
// Transcriber drives one run: it opens the recording, checks its format,
// opens a recognizer session and feeds the audio chunk by chunk, collecting
// every non-empty utterance the engine closes plus the trailing one returned
// by the final flush. Assemble converts the collected utterances into the
// public Transcript. Every run ends in an Outcome, success or failure; errors
// never escape Transcribe unconverted.
//
// # Usage
//
//	t := transcription.New(engine, transcription.WithMetrics(metrics))
//	out := t.Transcribe(ctx, transcription.Request{AudioPath: "call.wav"})
//	if out.OK() {
//		fmt.Println(out.Transcript().FullText)
//	}
package transcription
