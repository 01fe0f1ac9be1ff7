// Package framing splits a byte stream into delimited frames.
//
// Frames are produced lazily as a pipeline. A frame that grows past the
// configured maximum length before its delimiter is seen aborts the stream
// with ErrFrameTooLarge; there is no truncation and no per-frame skip.
//
//	frames := framing.Frames(file, framing.WithMaxFrameLength(1000))
//	records := pipeline.Drop(frames, 1) // header
package framing
