package logging

import (
	"io"
	"os"
	"sync/atomic"
)

// stderrSink is the writer every logger uses where it would otherwise write to os.Stderr.
// Its target can be swapped while loggers are writing.
type stderrSink struct {
	target atomic.Pointer[sinkTarget]
}

type sinkTarget struct {
	w io.Writer
}

func newStderrSink(w io.Writer) *stderrSink {
	s := &stderrSink{}
	s.swap(w)
	return s
}

func (s *stderrSink) Write(p []byte) (int, error) {
	return s.target.Load().w.Write(p)
}

// swap installs w (nil discards) and returns the previous target.
func (s *stderrSink) swap(w io.Writer) io.Writer {
	if w == nil {
		w = io.Discard
	}
	prev := s.target.Swap(&sinkTarget{w: w})
	if prev == nil {
		return nil
	}
	return prev.w
}

var sink = newStderrSink(os.Stderr)

// SetGlobalOutput redirects the stderr sink of every logger and returns a func restoring the
// previous target. The watch TUI uses it to keep log lines off the screen it owns.
func SetGlobalOutput(w io.Writer) (restore func()) {
	prev := sink.swap(w)
	return func() { sink.swap(prev) }
}

// GetGlobalOutput returns the shared writer loggers use in place of os.Stderr.
func GetGlobalOutput() io.Writer {
	return sink
}
