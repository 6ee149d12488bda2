// Command wavscribe transcribes mono 16-bit PCM WAV recordings into
// timestamped text segments and writes one JSON document to stdout.
//
// Usage:
//
//	wavscribe <audio_file> [model_path]
//	wavscribe --audio PATH [--model PATH] [--chunk-size N] [--format transcript|envelope]
//	wavscribe serve [--host HOST] [--port PORT]
//	wavscribe version
//
// Diagnostics go to stderr, whatever logging.output says. The exit status is
// 0 on success and 1 on any failure. --help is the exception to the single
// document rule: it prints flag usage to stderr, writes nothing to stdout and
// exits 0.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp(os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
