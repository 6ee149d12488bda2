package audio

import (
	"fmt"

	"github.com/kbukum/wavscribe/errors"
)

// Required layout.
const (
	RequiredChannels    = 1
	RequiredSampleWidth = 2
	Uncompressed        = "uncompressed"
)

// NominalWindowSeconds is the default chunk length in seconds.
const NominalWindowSeconds = 5

// MaxChunkFrames is the largest chunk NextChunk accepts, a little over
// seventeen minutes at 16 kHz. Keep the lte tags on chunk_frames in sync.
const MaxChunkFrames = 1 << 24

// Format describes an opened recording.
type Format struct {
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	SampleWidth int    `json:"sample_width"` // bytes per sample
	Compression string `json:"compression"`
}

// FrameSize is the number of bytes in one frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.Channels * f.SampleWidth
}

// ValidateFormat rejects anything but mono 16-bit uncompressed PCM. The
// checks run in order channels, sample width, compression, and the first
// violation is reported.
func ValidateFormat(f Format) error {
	if f.Channels != RequiredChannels {
		return errors.UnsupportedFormat("channels", RequiredChannels, f.Channels,
			fmt.Sprintf("got %d channels", f.Channels))
	}
	if f.SampleWidth != RequiredSampleWidth {
		return errors.UnsupportedFormat("sample_width", RequiredSampleWidth, f.SampleWidth,
			fmt.Sprintf("got %d bit samples", f.SampleWidth*8))
	}
	if f.Compression != Uncompressed {
		return errors.UnsupportedFormat("compression", Uncompressed, f.Compression,
			fmt.Sprintf("got %s audio", f.Compression))
	}
	return nil
}

// DefaultChunkFrames returns the number of frames in a NominalWindowSeconds
// chunk at sampleRate.
func DefaultChunkFrames(sampleRate int) int {
	return sampleRate * NominalWindowSeconds
}

// compressionName maps a WAV format tag to a descriptive name.
func compressionName(tag uint16) string {
	switch tag {
	case 1:
		return Uncompressed
	case 3:
		return "ieee-float"
	case 6:
		return "alaw"
	case 7:
		return "mulaw"
	case 0xFFFE:
		return "extensible"
	default:
		return fmt.Sprintf("format-0x%04X", tag)
	}
}
