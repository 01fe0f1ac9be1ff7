package framing

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	apperrors "github.com/kbukum/bulkflow/errors"
	"github.com/kbukum/bulkflow/pipeline"
)

const (
	// DefaultDelimiter separates frames when no delimiter is configured.
	DefaultDelimiter = "\n"
	// DefaultMaxFrameLength is the largest frame accepted, delimiter excluded.
	DefaultMaxFrameLength = 1000
)

var (
	// ErrFrameTooLarge is returned when a frame exceeds the maximum length.
	ErrFrameTooLarge = apperrors.New(apperrors.ErrCodeFrameTooLarge, "frame too large")
	// ErrUnterminatedFrame is returned in strict mode when the input ends inside a frame.
	ErrUnterminatedFrame = apperrors.New(apperrors.ErrCodeUnterminatedFrame, "unterminated frame")
)

// Config controls how a stream is framed.
type Config struct {
	Delimiter      string
	MaxFrameLength int
	// Strict rejects a final frame that is not followed by the delimiter.
	Strict bool
}

// Option configures Frames.
type Option func(*Config)

// WithDelimiter sets the frame delimiter. An empty delimiter is ignored.
func WithDelimiter(delim string) Option {
	return func(c *Config) {
		if delim != "" {
			c.Delimiter = delim
		}
	}
}

// WithMaxFrameLength sets the maximum frame length. Non-positive values are ignored.
func WithMaxFrameLength(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxFrameLength = n
		}
	}
}

// WithStrictTermination makes an undelimited final frame an error instead of a frame.
func WithStrictTermination() Option {
	return func(c *Config) { c.Strict = true }
}

// Frames returns a pipeline of the frames in r, delimiter stripped.
// Each frame is a fresh slice owned by the consumer.
func Frames(r io.Reader, opts ...Option) *pipeline.Pipeline[[]byte] {
	cfg := Config{Delimiter: DefaultDelimiter, MaxFrameLength: DefaultMaxFrameLength}
	for _, opt := range opts {
		opt(&cfg)
	}
	return pipeline.FromFunc(func(_ context.Context) pipeline.Iterator[[]byte] {
		return newFrameIter(r, cfg)
	})
}

type frameIter struct {
	scanner *bufio.Scanner
	cfg     Config
	done    bool
}

func newFrameIter(r io.Reader, cfg Config) *frameIter {
	limit := cfg.MaxFrameLength + len(cfg.Delimiter)
	initial := 4096
	if limit < initial {
		initial = limit
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, initial), limit)
	s.Split(splitFunc(cfg))
	return &frameIter{scanner: s, cfg: cfg}
}

func (it *frameIter) Next(ctx context.Context) ([]byte, bool, error) {
	if it.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if it.scanner.Scan() {
		return bytes.Clone(it.scanner.Bytes()), true, nil
	}
	it.done = true
	err := it.scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		return nil, false, apperrors.FrameTooLarge(it.cfg.MaxFrameLength)
	}
	return nil, false, err
}

func (it *frameIter) Close() error { return nil }

// splitFunc finds the next delimiter and enforces the length bound on the
// bytes buffered so far, so an oversized frame fails without reading it whole.
func splitFunc(cfg Config) bufio.SplitFunc {
	delim := []byte(cfg.Delimiter)
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.Index(data, delim); i >= 0 {
			if i > cfg.MaxFrameLength {
				return 0, nil, apperrors.FrameTooLarge(cfg.MaxFrameLength)
			}
			return i + len(delim), data[:i], nil
		}
		// The tail may hold the first bytes of a delimiter.
		if len(data)-len(delim)+1 > cfg.MaxFrameLength {
			return 0, nil, apperrors.FrameTooLarge(cfg.MaxFrameLength)
		}
		if !atEOF || len(data) == 0 {
			return 0, nil, nil
		}
		if len(data) > cfg.MaxFrameLength {
			return 0, nil, apperrors.FrameTooLarge(cfg.MaxFrameLength)
		}
		if cfg.Strict {
			return 0, nil, apperrors.UnterminatedFrame(len(data))
		}
		return len(data), data, bufio.ErrFinalToken
	}
}
