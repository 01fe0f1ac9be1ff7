// Package pipeline provides composable, pull-based stream operators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain, or ForEach. Each stage pulls from the previous stage on demand,
// which gives backpressure without explicit flow control.
//
// # Operators
//
// Synchronous (single-goroutine):
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - FilterMap: partial transform, values mapped to false are dropped
//   - Drop / Take: skip or bound a prefix of the stream
//   - Tap: side-effect without altering the value (logging, metrics, counting)
//   - Batch: group values into slices by size and/or time
//   - Zip: pair two streams one-to-one
//
// Concurrent (multi-goroutine):
//
//   - Buffer: decouple producer/consumer with a buffered channel
//   - Balance: round-robin fan-out over branches, merged back in completion order
//   - Conflate: fold everything a fast producer emits between two pulls
//   - Ticks: a timer-driven source
//
// # Usage
//
//	src := pipeline.FromSlice([]int{1, 2, 3, 4, 5})
//	batches := pipeline.Batch(src, 2, 0)
//	sums := pipeline.Balance(batches, sum, sum)
//	results, _ := pipeline.Collect(ctx, sums)
//
// Rate adaptation:
//
//	counts := pipeline.Conflate(pipeline.Ticks(time.Second, time.Second),
//	    func(time.Time) int { return 1 },
//	    func(n int, _ time.Time) int { return n + 1 })
//	samples := pipeline.Take(pipeline.Zip(pipeline.Ticks(3*time.Second, 3*time.Second), counts), 10)
//	pipeline.Drain(samples, report).Run(ctx)
package pipeline
