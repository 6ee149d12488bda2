package audio

import "context"

// ChunkIterator adapts a Stream to the pull-based pipeline.Iterator. Next
// reports ok=false at end of stream.
type ChunkIterator struct {
	stream *Stream
	frames int
}

// Chunks returns an iterator over chunks of up to frames frames. Closing the
// iterator does not close the stream; the stream's owner does that.
func (s *Stream) Chunks(frames int) *ChunkIterator {
	return &ChunkIterator{stream: s, frames: frames}
}

// Next returns the next non-empty chunk.
func (it *ChunkIterator) Next(ctx context.Context) (Chunk, bool, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, false, err
	}
	c, err := it.stream.NextChunk(it.frames)
	if err != nil {
		return Chunk{}, false, err
	}
	if c.Empty() {
		return Chunk{}, false, nil
	}
	return c, true, nil
}

// Close is a no-op.
func (it *ChunkIterator) Close() error { return nil }
