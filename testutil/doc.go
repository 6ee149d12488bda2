// Package testutil provides fixtures for tests that need real files on
// disk: WAV recordings in any layout and model directories.
//
// Files are written into the test's temporary directory and removed
// automatically when the test ends.
//
//	func TestTranscribe(t *testing.T) {
//	    h := testutil.T(t)
//	    audio := h.WAV("speech.wav", testutil.Mono16(16000), testutil.Silence(16000, 3))
//	    model := h.ModelDir("vosk-model-small-en-us-0.15")
//	    // ...
//	}
//
// WAV writes through go-audio's encoder. RawWAV writes a header field by
// field so tests can produce containers the encoder refuses to create,
// such as compressed format tags or truncated data chunks.
package testutil
