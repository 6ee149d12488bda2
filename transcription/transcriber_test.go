package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/observability"
	"github.com/kbukum/wavscribe/recognizer"
	"github.com/kbukum/wavscribe/recognizer/recognizertest"
	"github.com/kbukum/wavscribe/testutil"
)

type fixture struct {
	h     *testutil.THelper
	model string
}

func newFixture(t *testing.T) fixture {
	h := testutil.T(t)
	return fixture{h: h, model: h.ModelDir("vosk-model-small-en-us-0.15")}
}

func newTranscriber(e recognizer.Engine, opts ...Option) *Transcriber {
	return New(e, append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func TestTranscribe_SilenceYieldsEmptyTranscript(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("silence.wav", testutil.Mono16(16000), testutil.Silence(16000, 3))
	engine := &recognizertest.Engine{Final: recognizer.Result{Text: ""}}

	out := newTranscriber(engine).Transcribe(context.Background(), Request{AudioPath: path, ModelPath: f.model})
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	tr := out.Transcript()
	if len(tr.Segments) != 0 || tr.FullText != "" {
		t.Errorf("expected empty transcript, got %+v", tr)
	}
	data, _ := json.Marshal(tr)
	if !strings.Contains(string(data), `"segments":[]`) {
		t.Errorf("expected segments to serialize as [], got %s", data)
	}

	s := engine.Last()
	if len(s.Chunks) != 1 || s.Chunks[0] != 96000 {
		t.Errorf("expected one short chunk of 96000 bytes, got %v", s.Chunks)
	}
	if s.Flushes != 1 || !s.Closed {
		t.Errorf("expected one flush and a closed session, got flushes=%d closed=%v", s.Flushes, s.Closed)
	}
}

func TestTranscribe_TwoUtterances(t *testing.T) {
	f := newFixture(t)
	samples := testutil.Join(
		testutil.Tone(16000, 2, 220),
		testutil.Silence(16000, 3),
		testutil.Tone(16000, 2, 330),
		testutil.Silence(16000, 3),
	)
	path := f.h.WAV("speech.wav", testutil.Mono16(16000), samples)
	engine := &recognizertest.Engine{
		BoundaryFrames: 80000,
		Utterances: []recognizer.Result{
			recognizertest.Utterance("hello there", 0.3, 1.9, "hello", "there"),
			recognizertest.Utterance("general kenobi", 5.2, 6.8, "general", "kenobi"),
		},
	}

	out := newTranscriber(engine).Transcribe(context.Background(), Request{AudioPath: path, ModelPath: f.model})
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	tr := out.Transcript()
	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(tr.Segments))
	}
	for i, seg := range tr.Segments {
		if seg.ID != i {
			t.Errorf("expected id %d, got %d", i, seg.ID)
		}
		if seg.Start > seg.End {
			t.Errorf("segment %d: start after end", i)
		}
	}
	if !(tr.Segments[0].Start < tr.Segments[1].Start && tr.Segments[0].End < tr.Segments[1].End) {
		t.Errorf("expected increasing timings, got %+v", tr.Segments)
	}
	if tr.FullText != "hello there general kenobi" || tr.Text() != tr.FullText {
		t.Errorf("unexpected full text %q", tr.FullText)
	}

	utts := out.Utterances()
	if len(utts) != 2 || utts[0].Time != 5 || utts[1].Time != 10 {
		t.Errorf("expected utterances at 5s and 10s, got %+v", utts)
	}
}

func TestTranscribe_DropsEmptyResults(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(16000), testutil.Silence(16000, 1))
	engine := &recognizertest.Engine{
		BoundaryAfter: []int{1, 2, 3},
		Utterances: []recognizer.Result{
			{Text: "   "},
			{Text: "kept"},
			{Text: ""},
		},
		Final: recognizer.Result{Text: "\t"},
	}

	out := newTranscriber(engine).Transcribe(context.Background(), Request{
		AudioPath: path, ModelPath: f.model, ChunkFrames: 4000,
	})
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	tr := out.Transcript()
	if len(tr.Segments) != 1 || tr.Segments[0].Text != "kept" || tr.Segments[0].ID != 0 {
		t.Fatalf("expected only the non-empty utterance, got %+v", tr.Segments)
	}
	// No word timings: fallback window is 4000/16000 seconds.
	if tr.Segments[0].Start != 0 || tr.Segments[0].End != 0.25 {
		t.Errorf("expected fallback [0, 0.25], got [%v, %v]", tr.Segments[0].Start, tr.Segments[0].End)
	}
	if engine.Last().Drains != 3 {
		t.Errorf("expected 3 drains, got %d", engine.Last().Drains)
	}
}

func TestTranscribe_FinalResultAppended(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(8000), testutil.Tone(8000, 2, 440))
	engine := &recognizertest.Engine{
		BoundaryAfter: []int{1},
		Utterances:    []recognizer.Result{recognizertest.Utterance("first", 0.1, 0.8, "first")},
		Final:         recognizertest.Utterance("last", 1.2, 1.9, "last"),
	}

	out := newTranscriber(engine).Transcribe(context.Background(), Request{
		AudioPath: path, ModelPath: f.model, ChunkFrames: 8000,
	})
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	utts := out.Utterances()
	if len(utts) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(utts))
	}
	if !utts[1].Result.Final || utts[1].Time != 2 {
		t.Errorf("expected final utterance at 2s, got %+v", utts[1])
	}
	if out.Transcript().FullText != "first last" {
		t.Errorf("unexpected full text %q", out.Transcript().FullText)
	}
}

func TestTranscribe_ChunkFrames(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(16000), testutil.Silence(16000, 1))

	tests := []struct {
		name     string
		request  int
		option   int
		expected []int
	}{
		{"default window", 0, 0, []int{32000}},
		{"request override", 4000, 0, []int{8000, 8000, 8000, 8000}},
		{"configured default", 0, 10000, []int{20000, 12000}},
		{"request wins over configured", 8000, 10000, []int{16000, 16000}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := &recognizertest.Engine{}
			tr := newTranscriber(engine, WithChunkFrames(tc.option))
			out := tr.Transcribe(context.Background(), Request{
				AudioPath: path, ModelPath: f.model, ChunkFrames: tc.request,
			})
			if !out.OK() {
				t.Fatalf("expected success, got %v", out.Err())
			}
			got := engine.Last().Chunks
			if fmt.Sprint(got) != fmt.Sprint(tc.expected) {
				t.Errorf("expected chunks %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestTranscribe_SessionOptions(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(22050), testutil.Silence(22050, 0.5))
	engine := &recognizertest.Engine{}

	out := newTranscriber(engine, WithSessionLogLevel("error")).Transcribe(context.Background(),
		Request{AudioPath: path, ModelPath: f.model})
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	s := engine.Last()
	if !s.Options.Words || !s.Options.PartialWords {
		t.Errorf("expected word timings enabled, got %+v", s.Options)
	}
	if s.Options.LogLevel != "error" {
		t.Errorf("expected session log level error, got %q", s.Options.LogLevel)
	}
	if s.SampleRate != 22050 {
		t.Errorf("expected sample rate 22050, got %d", s.SampleRate)
	}
	if s.Model == nil || s.Model.Path != f.model {
		t.Errorf("expected model %s, got %+v", f.model, s.Model)
	}
}

func TestTranscribe_DefaultModel(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(16000), testutil.Silence(16000, 0.5))
	engine := &recognizertest.Engine{}

	out := newTranscriber(engine, WithDefaultModel(f.model)).Transcribe(context.Background(), Request{AudioPath: path})
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	if engine.Last().Model.Path != f.model {
		t.Errorf("expected default model %s, got %s", f.model, engine.Last().Model.Path)
	}
}

func TestTranscribe_Failures(t *testing.T) {
	f := newFixture(t)
	good := f.h.WAV("good.wav", testutil.Mono16(16000), testutil.Silence(16000, 1))

	tests := []struct {
		name     string
		request  Request
		code     errors.ErrorCode
		contains string
	}{
		{
			name:     "missing audio",
			request:  Request{AudioPath: f.h.Path("missing.wav"), ModelPath: f.model},
			code:     errors.ErrCodeFileNotFound,
			contains: "Audio file not found",
		},
		{
			name:     "missing model",
			request:  Request{AudioPath: good, ModelPath: f.h.Path("no-model")},
			code:     errors.ErrCodeModelNotFound,
			contains: "Model not found",
		},
		{
			name:     "stereo",
			request:  Request{AudioPath: f.h.WAV("stereo.wav", testutil.WAVSpec{SampleRate: 16000, BitDepth: 16, Channels: 2}, make([]int, 3200)), ModelPath: f.model},
			code:     errors.ErrCodeUnsupportedFormat,
			contains: "2 channels",
		},
		{
			name:     "8 bit",
			request:  Request{AudioPath: f.h.WAV("8bit.wav", testutil.WAVSpec{SampleRate: 16000, BitDepth: 8, Channels: 1}, make([]int, 1600)), ModelPath: f.model},
			code:     errors.ErrCodeUnsupportedFormat,
			contains: "8 bit",
		},
		{
			name: "mulaw",
			request: Request{AudioPath: f.h.RawWAV("mulaw.wav", testutil.RawHeader{
				AudioFormat: testutil.FormatMuLaw, Channels: 1, SampleRate: 8000, BitsPerSample: 16,
			}, make([]byte, 160)), ModelPath: f.model},
			code:     errors.ErrCodeUnsupportedFormat,
			contains: "mulaw",
		},
		{
			name:     "not a wav file",
			request:  Request{AudioPath: f.h.File("notes.wav", []byte("just some text")), ModelPath: f.model},
			code:     errors.ErrCodeUnsupportedFormat,
			contains: "RIFF",
		},
		{
			name:     "empty audio path",
			request:  Request{ModelPath: f.model},
			code:     errors.ErrCodeInvalidInput,
			contains: "",
		},
		{
			name:     "negative chunk frames",
			request:  Request{AudioPath: good, ModelPath: f.model, ChunkFrames: -1},
			code:     errors.ErrCodeInvalidInput,
			contains: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := &recognizertest.Engine{}
			out := newTranscriber(engine).Transcribe(context.Background(), tc.request)
			if out.OK() {
				t.Fatal("expected failure")
			}
			if out.Err().Code != tc.code {
				t.Errorf("expected %s, got %s (%s)", tc.code, out.Err().Code, out.Err().Message)
			}
			if !strings.Contains(out.Err().Message, tc.contains) {
				t.Errorf("expected message to contain %q, got %q", tc.contains, out.Err().Message)
			}
			if len(out.Transcript().Segments) != 0 {
				t.Error("failed outcome must not carry segments")
			}
			if engine.Last() != nil {
				t.Error("no session should be opened before the input is accepted")
			}
		})
	}
}

func TestTranscribe_ModelMissingInstructions(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(16000), testutil.Silence(16000, 1))
	out := newTranscriber(&recognizertest.Engine{}).Transcribe(context.Background(),
		Request{AudioPath: path, ModelPath: f.h.Path("models/none")})
	if out.Err().Instructions() != errors.ModelInstructions {
		t.Errorf("expected instructions, got %q", out.Err().Instructions())
	}
}

func TestTranscribe_EngineFailures(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(16000), testutil.Silence(16000, 2))

	tests := []struct {
		name      string
		failure   recognizertest.Failure
		operation string
	}{
		{"session", recognizertest.Failure{Op: "session", Call: 1, Err: fmt.Errorf("model load failed")}, "session"},
		{"feed", recognizertest.Failure{Op: "feed", Call: 2, Err: fmt.Errorf("decoder crashed")}, "feed"},
		{"drain", recognizertest.Failure{Op: "drain", Call: 1, Err: fmt.Errorf("bad result json")}, "drain"},
		{"flush", recognizertest.Failure{Op: "flush", Call: 1, Err: fmt.Errorf("connection reset")}, "flush"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			failure := tc.failure
			engine := &recognizertest.Engine{
				BoundaryAfter: []int{1},
				Utterances:    []recognizer.Result{{Text: "partial work"}},
				Fail:          &failure,
			}
			out := newTranscriber(engine).Transcribe(context.Background(), Request{
				AudioPath: path, ModelPath: f.model, ChunkFrames: 8000,
			})
			if out.OK() {
				t.Fatal("expected failure")
			}
			if out.Err().Code != errors.ErrCodeEngineFailure {
				t.Fatalf("expected ENGINE_FAILURE, got %s", out.Err().Code)
			}
			if out.Err().Message != tc.failure.Err.Error() {
				t.Errorf("expected verbatim engine message %q, got %q", tc.failure.Err.Error(), out.Err().Message)
			}
			if out.Err().Details["operation"] != tc.operation {
				t.Errorf("expected operation %s, got %v", tc.operation, out.Err().Details["operation"])
			}
			if len(out.Transcript().Segments) != 0 || out.Utterances() != nil {
				t.Error("engine failure must not yield a partial transcript")
			}
			if s := engine.Last(); s != nil && !s.Closed {
				t.Error("session must be closed after a failure")
			}
		})
	}
}

func TestTranscribe_Cancelled(t *testing.T) {
	f := newFixture(t)
	path := f.h.WAV("a.wav", testutil.Mono16(16000), testutil.Silence(16000, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := newTranscriber(&recognizertest.Engine{}).Transcribe(ctx, Request{AudioPath: path, ModelPath: f.model})
	if out.OK() {
		t.Fatal("expected failure for a cancelled context")
	}
}

func TestTranscribe_SpanRecordsFailure(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	f := newFixture(t)
	out := newTranscriber(&recognizertest.Engine{}).Transcribe(context.Background(),
		Request{AudioPath: f.h.Path("missing.wav"), ModelPath: f.model})
	if out.OK() {
		t.Fatal("expected failure")
	}

	var run sdktrace.ReadOnlySpan
	for _, s := range rec.Ended() {
		if s.Name() == observability.SpanTranscribe {
			run = s
		}
	}
	if run == nil {
		t.Fatal("expected a transcription span")
	}
	if run.Status().Code != codes.Error || run.Status().Description != string(errors.ErrCodeFileNotFound) {
		t.Errorf("expected error status FILE_NOT_FOUND, got %+v", run.Status())
	}
	var hasRunID bool
	for _, kv := range run.Attributes() {
		if string(kv.Key) == observability.AttrRunID && kv.Value.AsString() != "" {
			hasRunID = true
		}
	}
	if !hasRunID {
		t.Error("expected run id attribute")
	}
}
