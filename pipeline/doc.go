// Package pipeline provides composable, pull-based data pipeline operators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect
// or Iter. Each stage pulls from the previous stage on demand, so a long
// recording is processed one chunk at a time without buffering.
//
// All operators run on the caller's goroutine.
//
//   - Map: transform each value
//   - FlatMap: transform each value into zero or more values
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value (logging, metrics)
//   - Concat: join pipelines sequentially
//   - Once: a single lazily computed value, e.g. an end-of-stream flush
//
// # Usage
//
//	chunks := pipeline.From[audio.Chunk](stream.Chunks(frames))
//	fed := pipeline.Map(chunks, feed)
//	drained := pipeline.FlatMap(fed, drain)
//	all := pipeline.Concat(drained, pipeline.Once(flush))
//	results, err := pipeline.Collect(ctx, pipeline.Filter(all, hasText))
package pipeline
