package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format tags.
const (
	FormatPCM       = 1
	FormatIEEEFloat = 3
	FormatALaw      = 6
	FormatMuLaw     = 7
)

// WAVSpec describes the layout of a fixture recording.
type WAVSpec struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// Mono16 is the layout the transcriber accepts.
func Mono16(sampleRate int) WAVSpec {
	return WAVSpec{SampleRate: sampleRate, BitDepth: 16, Channels: 1}
}

// Silence returns seconds of zero samples for a mono recording.
func Silence(sampleRate int, seconds float64) []int {
	return make([]int, int(float64(sampleRate)*seconds))
}

// Tone returns seconds of a sine wave at freq Hz for a mono 16-bit recording.
func Tone(sampleRate int, seconds, freq float64) []int {
	n := int(float64(sampleRate) * seconds)
	samples := make([]int, n)
	for i := range samples {
		samples[i] = int(8000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return samples
}

// Join concatenates sample runs, e.g. tone, silence, tone.
func Join(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// THelper writes fixtures into a per-test temporary directory.
type THelper struct {
	t   testing.TB
	dir string
}

// T wraps a testing.TB to provide fixture helpers.
func T(t testing.TB) *THelper {
	t.Helper()
	return &THelper{t: t, dir: t.TempDir()}
}

// Dir returns the fixture directory.
func (h *THelper) Dir() string { return h.dir }

// Path returns the absolute path of name inside the fixture directory
// without creating it.
func (h *THelper) Path(name string) string { return filepath.Join(h.dir, name) }

// WAV encodes interleaved samples with go-audio's PCM encoder and returns
// the file path. samples must hold a whole number of frames.
func (h *THelper) WAV(name string, spec WAVSpec, samples []int) string {
	h.t.Helper()
	if len(samples) == 0 {
		return h.RawWAV(name, RawHeader{
			AudioFormat:   FormatPCM,
			Channels:      uint16(spec.Channels),
			SampleRate:    uint32(spec.SampleRate),
			BitsPerSample: uint16(spec.BitDepth),
		}, nil)
	}

	path := h.Path(name)
	f, err := os.Create(path)
	if err != nil {
		h.t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, spec.SampleRate, spec.BitDepth, spec.Channels, FormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: spec.Channels, SampleRate: spec.SampleRate},
		Data:           samples,
		SourceBitDepth: spec.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		h.t.Fatalf("encode %s: %v", name, err)
	}
	if err := enc.Close(); err != nil {
		h.t.Fatalf("close encoder %s: %v", name, err)
	}
	return path
}

// RawHeader is the fmt chunk of a RawWAV fixture. DataSize overrides the
// declared data chunk length when non-zero, which produces truncated files.
type RawHeader struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataSize      uint32
}

type riffHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// RawWAV writes a canonical 44-byte header followed by data verbatim and
// returns the file path.
func (h *THelper) RawWAV(name string, hdr RawHeader, data []byte) string {
	h.t.Helper()
	blockAlign := hdr.Channels * ((hdr.BitsPerSample + 7) / 8)
	dataSize := hdr.DataSize
	if dataSize == 0 {
		dataSize = uint32(len(data))
	}
	header := riffHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   hdr.AudioFormat,
		NumChannels:   hdr.Channels,
		SampleRate:    hdr.SampleRate,
		ByteRate:      hdr.SampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: hdr.BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		h.t.Fatalf("write header %s: %v", name, err)
	}
	buf.Write(data)
	return h.File(name, buf.Bytes())
}

// File writes arbitrary content and returns the file path.
func (h *THelper) File(name string, content []byte) string {
	h.t.Helper()
	path := h.Path(name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		h.t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// ModelDir creates an empty model directory and returns its path.
func (h *THelper) ModelDir(name string) string {
	h.t.Helper()
	path := h.Path(name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		h.t.Fatalf("mkdir %s: %v", name, err)
	}
	return path
}

// PCM16 encodes mono samples as little-endian 16-bit PCM bytes.
func PCM16(samples []int) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s)))
	}
	return out
}
