// Package recognizer defines the speech recognition engine contract used by
// the transcription driver.
//
// An Engine is a provider.Provider that opens one Session per recording.
// A Session is fed raw PCM chunks and reports when the engine has closed an
// utterance; the utterance is then retrieved with Drain. Flush retrieves the
// trailing utterance once the audio is exhausted. The package does no text
// post-processing: results are passed through as the engine produced them.
//
// # Backends
//
//   - recognizer/voskws: a Vosk server reached over its websocket protocol
//   - recognizer/recognizertest: a scripted in-process engine for tests
//
// # Usage
//
//	reg := recognizer.NewRegistry()
//	reg.RegisterFactory(voskws.ProviderName, voskws.Factory())
//	engine, err := reg.Resolve(voskws.ProviderName, map[string]any{"url": url})
//	model, err := recognizer.LoadModel("models/vosk-model-small-en-us-0.15")
//	session, err := engine.NewSession(ctx, model, 16000, recognizer.SessionOptions{Words: true})
package recognizer
