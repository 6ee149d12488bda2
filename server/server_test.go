package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/recognizer"
	"github.com/kbukum/wavscribe/recognizer/recognizertest"
	"github.com/kbukum/wavscribe/testutil"
	"github.com/kbukum/wavscribe/transcription"
)

const testSecret = "test-secret"

type harness struct {
	h      *testutil.THelper
	engine *recognizertest.Engine
	srv    *Server
}

func newHarness(t *testing.T, cfg Config) harness {
	t.Helper()
	h := testutil.T(t)
	engine := &recognizertest.Engine{
		BoundaryAfter: []int{1},
		Utterances: []recognizer.Result{
			recognizertest.Utterance("hello world", 0.2, 0.9, "hello", "world"),
		},
	}
	tr := transcription.New(engine,
		transcription.WithLogger(logger.Nop()),
		transcription.WithDefaultModel(h.ModelDir("model")),
	)
	cfg.Mode = gin.TestMode
	srv := New(cfg, logger.Nop())
	srv.ApplyDefaults("wavscribe", Deps{Transcriber: tr, Engine: engine})
	return harness{h: h, engine: engine, srv: srv}
}

func (hs harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	hs.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, audioPath string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if audioPath != "" {
		data, err := os.ReadFile(audioPath)
		if err != nil {
			t.Fatalf("read fixture: %v", err)
		}
		part, err := mw.CreateFormFile("audio", "upload.wav")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func transcribeRequest(t *testing.T, target, audioPath string, fields map[string]string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, audioPath, fields)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.MaxBodySize != "100MB" || cfg.MaxBodyBytes() != 100*1024*1024 {
		t.Errorf("expected 100MB body limit, got %s (%d)", cfg.MaxBodySize, cfg.MaxBodyBytes())
	}
	if cfg.Mode != "release" {
		t.Errorf("expected release mode, got %s", cfg.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port too large", func(c *Config) { c.Port = 70000 }, "server.port"},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -1 }, "server.read_timeout"},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -1 }, "server.write_timeout"},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = -1 }, "server.idle_timeout"},
		{"unknown mode", func(c *Config) { c.Mode = "loud" }, "server.mode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10MB", 10 * 1024 * 1024},
		{"512kb", 512 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"2048", 2048},
		{"100B", 100},
		{"", 7},
		{"lots", 7},
		{"-5MB", 7},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := parseSize(tc.in, 7); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestTranscribe_Success(t *testing.T) {
	hs := newHarness(t, Config{})
	path := hs.h.WAV("tone.wav", testutil.Mono16(16000), testutil.Tone(16000, 1, 440))

	rec := hs.do(transcribeRequest(t, "/v1/transcriptions", path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tr transcription.Transcript
	decode(t, rec, &tr)
	if len(tr.Segments) != 1 || tr.FullText != "hello world" {
		t.Fatalf("expected one segment with 'hello world', got %+v", tr)
	}
	if math.Abs(tr.Segments[0].Start-0.2) > 1e-9 || math.Abs(tr.Segments[0].End-0.9) > 1e-9 {
		t.Errorf("expected word timings [0.2, 0.9], got [%v, %v]", tr.Segments[0].Start, tr.Segments[0].End)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a generated request id header")
	}
	if s := hs.engine.Last(); s == nil || !s.Closed {
		t.Error("expected the recognition session to be closed")
	}
}

func TestTranscribe_ChunkSize(t *testing.T) {
	hs := newHarness(t, Config{})
	path := hs.h.WAV("tone.wav", testutil.Mono16(16000), testutil.Tone(16000, 1, 440))

	rec := hs.do(transcribeRequest(t, "/v1/transcriptions", path, map[string]string{"chunk_size": "4000"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := hs.engine.Last().Chunks; len(got) != 4 {
		t.Errorf("expected 4 chunks of 4000 frames, got %v", got)
	}
}

func TestTranscribe_Envelope(t *testing.T) {
	hs := newHarness(t, Config{})
	path := hs.h.WAV("tone.wav", testutil.Mono16(16000), testutil.Tone(16000, 1, 440))

	rec := hs.do(transcribeRequest(t, "/v1/transcriptions?format=envelope", path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Success  bool   `json:"success"`
		FullText string `json:"full_text"`
		Results  []struct {
			Text string  `json:"text"`
			Time float64 `json:"time"`
		} `json:"results"`
	}
	decode(t, rec, &env)
	if !env.Success || env.FullText != "hello world" {
		t.Errorf("expected successful envelope, got %+v", env)
	}
	if len(env.Results) != 1 || env.Results[0].Time != 1 {
		t.Errorf("expected one result at 1s, got %+v", env.Results)
	}
}

func TestTranscribe_Failures(t *testing.T) {
	tests := []struct {
		name      string
		build     func(hs harness) *http.Request
		status    int
		errSubstr string
	}{
		{
			name: "missing audio field",
			build: func(hs harness) *http.Request {
				return transcribeRequest(t, "/v1/transcriptions", "", map[string]string{"chunk_size": "10"})
			},
			status:    http.StatusBadRequest,
			errSubstr: `multipart field "audio" is required`,
		},
		{
			name: "bad chunk size",
			build: func(hs harness) *http.Request {
				path := hs.h.WAV("ok.wav", testutil.Mono16(16000), testutil.Silence(16000, 0.5))
				return transcribeRequest(t, "/v1/transcriptions", path, map[string]string{"chunk_size": "-3"})
			},
			status:    http.StatusBadRequest,
			errSubstr: "chunk_size must be a non-negative integer",
		},
		{
			name: "oversized chunk size",
			build: func(hs harness) *http.Request {
				path := hs.h.WAV("ok.wav", testutil.Mono16(16000), testutil.Silence(16000, 0.5))
				return transcribeRequest(t, "/v1/transcriptions", path, map[string]string{"chunk_size": "4611686018427387904"})
			},
			status:    http.StatusBadRequest,
			errSubstr: "chunk_size must be at most 16777216",
		},
		{
			name: "stereo recording",
			build: func(hs harness) *http.Request {
				spec := testutil.WAVSpec{SampleRate: 16000, BitDepth: 16, Channels: 2}
				path := hs.h.WAV("stereo.wav", spec, testutil.Silence(16000, 1))
				return transcribeRequest(t, "/v1/transcriptions", path, nil)
			},
			status:    http.StatusUnprocessableEntity,
			errSubstr: "got 2 channels",
		},
		{
			name: "not a wav file",
			build: func(hs harness) *http.Request {
				path := hs.h.File("notes.txt", []byte("plain text, not audio"))
				return transcribeRequest(t, "/v1/transcriptions", path, nil)
			},
			status:    http.StatusUnprocessableEntity,
			errSubstr: "Audio file must be mono WAV format at 16 bit PCM",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hs := newHarness(t, Config{})
			rec := hs.do(tc.build(hs))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var body map[string]string
			decode(t, rec, &body)
			if !strings.Contains(body["error"], tc.errSubstr) {
				t.Errorf("expected error containing %q, got %q", tc.errSubstr, body["error"])
			}
			if len(hs.engine.Sessions()) != 0 {
				t.Error("expected no recognition session to be opened")
			}
		})
	}
}

func TestTranscribe_EngineFailure(t *testing.T) {
	hs := newHarness(t, Config{})
	hs.engine.Fail = &recognizertest.Failure{Op: "feed", Call: 1, Err: fmt.Errorf("engine crashed")}
	path := hs.h.WAV("tone.wav", testutil.Mono16(16000), testutil.Tone(16000, 1, 440))

	rec := hs.do(transcribeRequest(t, "/v1/transcriptions", path, nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "engine crashed" {
		t.Errorf("expected verbatim engine message, got %q", body["error"])
	}
}

func TestTranscribe_BodyTooLarge(t *testing.T) {
	hs := newHarness(t, Config{MaxBodySize: "1KB"})
	path := hs.h.WAV("long.wav", testutil.Mono16(16000), testutil.Tone(16000, 1, 440))

	rec := hs.do(transcribeRequest(t, "/v1/transcriptions", path, nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(hs.engine.Sessions()) != 0 {
		t.Error("expected no recognition session to be opened")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name        string
		unavailable bool
		status      int
		health      string
	}{
		{"engine up", false, http.StatusOK, "up"},
		{"engine down", true, http.StatusServiceUnavailable, "down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hs := newHarness(t, Config{})
			hs.engine.Unavailable = tc.unavailable

			rec := hs.do(httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body struct {
				Service    string `json:"service"`
				Status     string `json:"status"`
				Timestamp  string `json:"timestamp"`
				Components []struct {
					Name   string `json:"name"`
					Status string `json:"status"`
				} `json:"components"`
			}
			decode(t, rec, &body)
			if body.Service != "wavscribe" || body.Status != tc.health || body.Timestamp == "" {
				t.Errorf("unexpected health body %s", rec.Body.String())
			}
			if len(body.Components) != 1 || body.Components[0].Name != recognizertest.Name {
				t.Errorf("expected the engine component, got %+v", body.Components)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	hs := newHarness(t, Config{})
	rec := hs.do(httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["name"] != "wavscribe" {
		t.Errorf("expected name wavscribe, got %v", body["name"])
	}
}

func TestRequestID_Propagated(t *testing.T) {
	hs := newHarness(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := hs.do(req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Errorf("expected request id req-42, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	hs := newHarness(t, Config{})
	hs.srv.GinEngine().GET("/boom", func(*gin.Context) { panic("boom") })

	rec := hs.do(httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal server error") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func signToken(t *testing.T, secret string, claims gojwt.MapClaims) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuth(t *testing.T) {
	valid := gojwt.MapClaims{"sub": "tester", "iss": "wavscribe", "exp": time.Now().Add(time.Hour).Unix()}
	expired := gojwt.MapClaims{"sub": "tester", "iss": "wavscribe", "exp": time.Now().Add(-time.Hour).Unix()}
	noExpiry := gojwt.MapClaims{"sub": "tester", "iss": "wavscribe"}
	otherIssuer := gojwt.MapClaims{"sub": "tester", "iss": "elsewhere", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"no expiry", "Bearer " + signToken(t, testSecret, noExpiry), http.StatusUnauthorized},
		{"other issuer", "Bearer " + signToken(t, testSecret, otherIssuer), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, valid), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hs := newHarness(t, Config{AuthSecret: testSecret, AuthIssuer: "wavscribe"})
			path := hs.h.WAV("tone.wav", testutil.Mono16(16000), testutil.Tone(16000, 0.5, 440))
			req := transcribeRequest(t, "/v1/transcriptions", path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := hs.do(req)
			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuth_SkipsHealthAndVersion(t *testing.T) {
	hs := newHarness(t, Config{AuthSecret: testSecret})
	for _, path := range []string{"/health", "/version"} {
		rec := hs.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected %s to bypass auth, got %d", path, rec.Code)
		}
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	hs := newHarness(t, Config{Host: "127.0.0.1", Port: port})
	if err := hs.srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	addr := hs.srv.Addr()
	if addr != fmt.Sprintf("127.0.0.1:%d", port) {
		t.Fatalf("expected bound address 127.0.0.1:%d, got %s", port, addr)
	}

	resp, err := http.Get("http://" + addr + "/version")
	if err != nil {
		t.Fatalf("get /version: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	if err := hs.srv.Stop(context.Background()); err != nil {
		t.Errorf("stop: %v", err)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	hs := newHarness(t, Config{Host: "127.0.0.1", Port: freePort(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hs.srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
