// Package audio reads WAV recordings as a forward-only sequence of raw PCM
// chunks.
//
// Open parses the RIFF container with go-audio's decoder and positions the
// stream at the start of the data chunk. ValidateFormat enforces the only
// layout the transcriber accepts: mono, 16-bit, uncompressed PCM. NextChunk
// then yields byte buffers of up to N frames each until end of stream.
//
//	s, err := audio.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := s.ValidateFormat(); err != nil {
//	    return err
//	}
//	for {
//	    c, err := s.NextChunk(audio.DefaultChunkFrames(s.Format().SampleRate))
//	    if err != nil || c.Empty() {
//	        break
//	    }
//	    // feed c.Data
//	}
package audio
