// Package profiling times nested command phases and writes pprof profiles on request.
package profiling

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	stopped  bool
	children []*span
	timer    *Timer
}

func (s *span) Stop() {
	s.timer.end(s)
}

// Timer records a tree of spans. Spans started while another is open become its children.
type Timer struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	open    []*span
}

var global = &Timer{}

// NewTimer returns an enabled timer.
func NewTimer() *Timer {
	t := &Timer{}
	t.enable()
	return t
}

func (t *Timer) enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return
	}
	t.enabled = true
	t.root = &span{name: "total", start: time.Now(), timer: t}
	t.open = []*span{t.root}
}

// Start opens a span named name. Disabled timers return a no-op Stopper.
func (t *Timer) Start(name string) Stopper {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return noopStopper{}
	}
	parent := t.open[len(t.open)-1]
	s := &span{name: name, start: time.Now(), timer: t}
	parent.children = append(parent.children, s)
	t.open = append(t.open, s)
	return s
}

func (t *Timer) end(s *span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.stopped {
		return
	}
	s.duration = time.Since(s.start)
	s.stopped = true
	for i := len(t.open) - 1; i > 0; i-- {
		if t.open[i] == s {
			t.open = t.open[:i]
			return
		}
	}
}

// Summarize writes the span tree with each span's share of the total.
func (t *Timer) Summarize(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return
	}
	total := time.Since(t.root.start)

	fmt.Fprintln(w, "\n--- Timing ---")
	fmt.Fprintf(w, "total %v\n", total.Round(100*time.Microsecond))
	for _, child := range t.root.children {
		printSpan(w, child, 1, total)
	}
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = float64(s.duration) / float64(total) * 100
	}
	duration := s.duration.Round(100 * time.Microsecond).String()
	if !s.stopped {
		duration = "open"
	}
	fmt.Fprintf(w, "%s- %s (%s, %.1f%%)\n", strings.Repeat("  ", depth), s.name, duration, pct)

	sort.SliceStable(s.children, func(i, j int) bool {
		return s.children[i].start.Before(s.children[j].start)
	})
	for _, child := range s.children {
		printSpan(w, child, depth+1, total)
	}
}

// Enable turns on the process-wide timer used by Start.
func Enable() {
	global.enable()
}

// Start opens a span on the process-wide timer.
func Start(name string) Stopper {
	return global.Start(name)
}

// Summarize writes the process-wide timer's spans.
func Summarize(w io.Writer) {
	global.Summarize(w)
}

type noopStopper struct{}

func (noopStopper) Stop() {}
