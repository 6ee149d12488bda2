// Package recognizertest provides a scripted recognizer.Engine for tests.
//
// The engine reports an utterance boundary whenever the audio fed to a
// session crosses a multiple of BoundaryFrames, or after the feed calls
// listed in BoundaryAfter. Each Drain returns the next scripted utterance
// and Flush returns Final.
package recognizertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/wavscribe/recognizer"
)

// Name is the default engine name.
const Name = "scripted"

// Failure makes the operation Op fail on its Call-th invocation (1-based)
// with Err. Op is one of "session", "feed", "drain", "flush".
type Failure struct {
	Op   string
	Call int
	Err  error
}

// Engine is a scripted recognition engine.
type Engine struct {
	// EngineName overrides Name.
	EngineName string
	// Unavailable makes IsAvailable report false.
	Unavailable bool
	// SampleWidth is the bytes per frame used to count frames. Defaults to 2.
	SampleWidth int
	// BoundaryFrames closes an utterance each time the fed frame count
	// crosses a multiple of it. Zero disables frame-based boundaries.
	BoundaryFrames int
	// BoundaryAfter lists 1-based feed calls after which a boundary is
	// reported.
	BoundaryAfter []int
	// Utterances are returned by successive Drain calls. Once exhausted,
	// Drain returns empty results.
	Utterances []recognizer.Result
	// Final is returned by Flush.
	Final recognizer.Result
	// Fail injects an error.
	Fail *Failure

	mu       sync.Mutex
	sessions []*Session
	opened   int
}

var _ recognizer.Engine = (*Engine)(nil)

// Name returns the engine name.
func (e *Engine) Name() string {
	if e.EngineName != "" {
		return e.EngineName
	}
	return Name
}

// IsAvailable reports whether the engine is available.
func (e *Engine) IsAvailable(_ context.Context) bool { return !e.Unavailable }

// NewSession opens a scripted session.
func (e *Engine) NewSession(ctx context.Context, model *recognizer.Model, sampleRate int, opts recognizer.SessionOptions) (recognizer.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened++
	if err := e.failure("session", e.opened); err != nil {
		return nil, err
	}
	width := e.SampleWidth
	if width == 0 {
		width = 2
	}
	s := &Session{
		engine:     e,
		Model:      model,
		SampleRate: sampleRate,
		Options:    opts,
		width:      width,
	}
	e.sessions = append(e.sessions, s)
	return s, nil
}

// Sessions returns every session opened so far.
func (e *Engine) Sessions() []*Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Session(nil), e.sessions...)
}

// Last returns the most recently opened session, or nil.
func (e *Engine) Last() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

func (e *Engine) failure(op string, call int) error {
	if e.Fail == nil || e.Fail.Op != op || e.Fail.Call != call {
		return nil
	}
	if e.Fail.Err != nil {
		return e.Fail.Err
	}
	return fmt.Errorf("scripted %s failure", op)
}

// Session records what the driver did with it.
type Session struct {
	engine *Engine
	width  int

	Model      *recognizer.Model
	SampleRate int
	Options    recognizer.SessionOptions

	// Chunks holds the length in bytes of every fed chunk.
	Chunks  []int
	Frames  int
	Drains  int
	Flushes int
	Closed  bool
}

var _ recognizer.Session = (*Session)(nil)

// Feed records the chunk and reports a boundary per the engine's script.
func (s *Session) Feed(ctx context.Context, chunk []byte) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	s.Chunks = append(s.Chunks, len(chunk))
	if err := s.engine.failure("feed", len(s.Chunks)); err != nil {
		return false, err
	}

	before := s.Frames
	s.Frames += len(chunk) / s.width
	if n := s.engine.BoundaryFrames; n > 0 && s.Frames/n > before/n {
		return true, nil
	}
	for _, call := range s.engine.BoundaryAfter {
		if call == len(s.Chunks) {
			return true, nil
		}
	}
	return false, nil
}

// Drain returns the next scripted utterance.
func (s *Session) Drain(ctx context.Context) (recognizer.Result, error) {
	if err := s.check(ctx); err != nil {
		return recognizer.Result{}, err
	}
	s.Drains++
	if err := s.engine.failure("drain", s.Drains); err != nil {
		return recognizer.Result{}, err
	}
	if s.Drains > len(s.engine.Utterances) {
		return recognizer.Result{}, nil
	}
	return s.engine.Utterances[s.Drains-1], nil
}

// Flush returns the scripted final result.
func (s *Session) Flush(ctx context.Context) (recognizer.Result, error) {
	if err := s.check(ctx); err != nil {
		return recognizer.Result{}, err
	}
	s.Flushes++
	if err := s.engine.failure("flush", s.Flushes); err != nil {
		return recognizer.Result{}, err
	}
	final := s.engine.Final
	final.Final = true
	return final, nil
}

// Close marks the session closed.
func (s *Session) Close() error {
	s.Closed = true
	return nil
}

func (s *Session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Closed {
		return fmt.Errorf("session is closed")
	}
	return nil
}

// Utterance builds a result whose words are spread evenly from start to
// end.
func Utterance(text string, start, end float64, words ...string) recognizer.Result {
	res := recognizer.Result{Text: text}
	if len(words) == 0 {
		return res
	}
	step := (end - start) / float64(len(words))
	for i, w := range words {
		res.Words = append(res.Words, recognizer.Word{
			Word:  w,
			Start: start + float64(i)*step,
			End:   start + float64(i+1)*step,
			Conf:  1,
		})
	}
	return res
}
