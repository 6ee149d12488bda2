package voskws

import (
	"context"
	"fmt"

	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/provider"
	"github.com/kbukum/wavscribe/recognizer"
)

// Session is one recognition session on its own websocket connection.
type Session struct {
	stream  provider.DuplexStream[frame, reply]
	log     *logger.Logger
	pending *recognizer.Result
	fed     int
	flushed bool
	closed  bool
}

var _ recognizer.Session = (*Session)(nil)

// Feed sends chunk and reads the server's reply.
func (s *Session) Feed(ctx context.Context, chunk []byte) (bool, error) {
	if err := s.usable(ctx); err != nil {
		return false, err
	}
	if err := s.stream.Send(audioFrame(chunk)); err != nil {
		return false, recognizer.Fail("feed", err)
	}
	r, err := s.stream.Recv()
	if err != nil {
		return false, recognizer.Fail("feed", err)
	}
	s.fed++
	if !r.boundary() {
		return false, nil
	}
	res := r.result(false)
	s.pending = &res
	s.log.Debug("utterance closed", logger.Fields("chunk", s.fed, "words", len(res.Words)))
	return true, nil
}

// Drain returns the utterance closed by the last Feed, or an empty result
// when there is none.
func (s *Session) Drain(ctx context.Context) (recognizer.Result, error) {
	if err := ctx.Err(); err != nil {
		return recognizer.Result{}, err
	}
	if s.pending == nil {
		return recognizer.Result{}, nil
	}
	res := *s.pending
	s.pending = nil
	return res, nil
}

// Flush signals end of audio and reads the final result.
func (s *Session) Flush(ctx context.Context) (recognizer.Result, error) {
	if err := s.usable(ctx); err != nil {
		return recognizer.Result{}, err
	}
	if s.flushed {
		return recognizer.Result{}, errors.Internal(fmt.Errorf("session already flushed"))
	}
	s.flushed = true

	msg, err := controlFrame(map[string]int{"eof": 1})
	if err != nil {
		return recognizer.Result{}, errors.Internal(err)
	}
	if err := s.stream.Send(msg); err != nil {
		return recognizer.Result{}, recognizer.Fail("flush", err)
	}
	r, err := s.stream.Recv()
	if err != nil {
		return recognizer.Result{}, recognizer.Fail("flush", err)
	}
	s.log.Debug("session flushed", logger.Fields("chunks", s.fed))
	return r.result(true), nil
}

// Close closes the connection. Calling Close more than once is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

func (s *Session) usable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return errors.Internal(fmt.Errorf("session is closed"))
	}
	return nil
}
