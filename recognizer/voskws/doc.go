// Package voskws implements recognizer.Engine on top of a Vosk server
// reached over its websocket protocol.
//
// Each session is one websocket connection. The session opens with a config
// message carrying the sample rate and the words flag, then every chunk is sent as a binary
// frame and answered by exactly one JSON reply: {"partial": ...} while an
// utterance is open, {"text": ..., "result": [...]} when the server closed
// one. Flush sends {"eof": 1} and reads the final result. The protocol has no
// partial-words option, so SessionOptions.PartialWords does not apply here.
//
// The model directory is verified locally by recognizer.LoadModel; the
// server owns the loaded model.
package voskws
