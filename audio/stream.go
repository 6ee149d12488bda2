package audio

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/kbukum/wavscribe/errors"
)

// Chunk is a bounded slice of PCM bytes. len(Data) is always a whole number
// of frames; an empty chunk marks end of stream.
type Chunk struct {
	Data   []byte
	Frames int
	// End is the stream position in seconds after this chunk.
	End float64
}

// Empty reports whether c marks end of stream.
func (c Chunk) Empty() bool { return len(c.Data) == 0 }

// Stream is an open WAV recording positioned inside its data chunk.
// It is not safe for concurrent use.
type Stream struct {
	path       string
	file       *os.File
	pcm        io.Reader
	format     Format
	dataFrames int
	framesRead int
	exhausted  bool
	closed     bool
}

// Open opens the recording at path and parses its header. It fails with
// FILE_NOT_FOUND when path is not a readable regular file and with
// UNSUPPORTED_FORMAT when it is not a RIFF/WAVE container with fmt and data
// chunks. The format itself is not checked; call ValidateFormat.
func Open(path string) (*Stream, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, errors.FileNotFound(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileNotFound(path).WithCause(err)
	}

	s, err := newStream(path, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func newStream(path string, f *os.File) (*Stream, error) {
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, errors.InvalidContainer("not a RIFF/WAVE file").WithCause(err)
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, errors.InvalidContainer("missing fmt chunk")
	}
	if dec.BitDepth == 0 {
		return nil, errors.InvalidContainer("bad sample width")
	}
	if err := dec.FwdToPCM(); err != nil || dec.PCMChunk == nil {
		if err == nil || stderrors.Is(err, io.EOF) {
			err = fmt.Errorf("no data chunk in %s", path)
		}
		return nil, errors.InvalidContainer("missing data chunk").WithCause(err)
	}

	format := Format{
		SampleRate:  int(dec.SampleRate),
		Channels:    int(dec.NumChans),
		SampleWidth: (int(dec.BitDepth) + 7) / 8,
		Compression: compressionName(dec.WavAudioFormat),
	}
	s := &Stream{
		path:   path,
		file:   f,
		pcm:    io.LimitReader(dec.PCMChunk, int64(dec.PCMSize)),
		format: format,
	}
	if fs := format.FrameSize(); fs > 0 {
		s.dataFrames = dec.PCMSize / fs
	}
	return s, nil
}

// Path returns the path the stream was opened from.
func (s *Stream) Path() string { return s.path }

// Format returns the recording's layout.
func (s *Stream) Format() Format { return s.format }

// ValidateFormat checks the stream's layout; see the package-level
// ValidateFormat.
func (s *Stream) ValidateFormat() error { return ValidateFormat(s.format) }

// DeclaredFrames is the frame count declared by the data chunk header. A
// truncated file yields fewer frames.
func (s *Stream) DeclaredFrames() int { return s.dataFrames }

// FramesRead is the number of frames returned so far.
func (s *Stream) FramesRead() int { return s.framesRead }

// Position is the read cursor in seconds.
func (s *Stream) Position() float64 {
	if s.format.SampleRate == 0 {
		return 0
	}
	return float64(s.framesRead) / float64(s.format.SampleRate)
}

// NextChunk reads up to frames frames. Once a chunk shorter than requested
// has been returned every later call returns an empty chunk, so repeated
// calls at end of stream are safe. A trailing partial frame in a truncated
// file is discarded. The buffer never exceeds what the data chunk declares
// as remaining.
func (s *Stream) NextChunk(frames int) (Chunk, error) {
	if frames <= 0 {
		return Chunk{}, errors.InvalidInput("chunk_frames", "must be positive")
	}
	if frames > MaxChunkFrames {
		return Chunk{}, errors.InvalidInput("chunk_frames", fmt.Sprintf("must be at most %d", MaxChunkFrames))
	}
	if s.closed {
		return Chunk{}, errors.Internal(fmt.Errorf("read from closed stream %s", s.path))
	}
	if s.exhausted {
		return s.eof(), nil
	}

	want := min(frames, s.dataFrames-s.framesRead)
	if want <= 0 {
		s.exhausted = true
		return s.eof(), nil
	}

	frameSize := s.format.FrameSize()
	buf := make([]byte, want*frameSize)
	n, err := io.ReadFull(s.pcm, buf)
	switch {
	case err == nil:
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
		s.exhausted = true
	default:
		return Chunk{}, errors.Internal(fmt.Errorf("reading %s: %w", s.path, err))
	}

	got := n / frameSize
	if got < frames {
		s.exhausted = true
	}
	if got == 0 {
		return s.eof(), nil
	}
	s.framesRead += got
	return Chunk{Data: buf[:got*frameSize], Frames: got, End: s.Position()}, nil
}

func (s *Stream) eof() Chunk {
	return Chunk{End: s.Position()}
}

// Close releases the file handle. Calling Close more than once is a no-op.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
