// Package integrity carries consistency violations found in loaded documents.
//
// A violation is data that contradicts a structural invariant of the model: a
// reference to a missing entity, a frame without a start entry, a frame holder
// with both or neither clef fields. In lenient mode violations are handed to a
// Sink and the caller degrades gracefully; in strict mode the violation is
// returned as an error and the caller aborts.
package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/enigma/internal/apperr"
)

// Modes accepted by ParseMode.
const (
	ModeLenient = "lenient"
	ModeStrict  = "strict"
)

// Violation is a single consistency violation.
type Violation struct {
	Message string
}

func (v *Violation) Error() string {
	return "integrity: " + v.Message
}

// Unwrap lets errors.Is(err, apperr.ErrIntegrity) match.
func (v *Violation) Unwrap() error {
	return apperr.ErrIntegrity
}

// Sink receives violations.
type Sink interface {
	Report(v *Violation)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(v *Violation)

// Report calls fn(v).
func (fn SinkFunc) Report(v *Violation) { fn(v) }

// LogSink writes each violation as a warning.
type LogSink struct {
	Logger *slog.Logger
}

// Report logs v.
func (s LogSink) Report(v *Violation) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(context.Background(), slog.LevelWarn, "integrity: violation",
		slog.String("message", v.Message))
}

// Collector records violations in memory. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	violations []*Violation
}

// Report appends v.
func (c *Collector) Report(v *Violation) {
	c.mu.Lock()
	c.violations = append(c.violations, v)
	c.mu.Unlock()
}

// Violations returns a copy of everything reported so far.
func (c *Collector) Violations() []*Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Violation, len(c.violations))
	copy(out, c.violations)
	return out
}

// Messages returns the messages of all reported violations.
func (c *Collector) Messages() []string {
	vs := c.Violations()
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message
	}
	return out
}

// Len returns the number of reported violations.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.violations)
}

// Multi fans a violation out to several sinks.
type Multi []Sink

// Report forwards v to every sink.
func (m Multi) Report(v *Violation) {
	for _, s := range m {
		if s != nil {
			s.Report(v)
		}
	}
}

// Checker decides what happens to a violation.
type Checker struct {
	Strict bool
	Sink   Sink
}

// NewChecker returns a checker for mode (see ParseMode) that reports to sink.
func NewChecker(mode string, sink Sink) (*Checker, error) {
	strict, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return &Checker{Strict: strict, Sink: sink}, nil
}

// ParseMode returns true for strict mode. Empty means lenient.
func ParseMode(mode string) (bool, error) {
	switch mode {
	case "", ModeLenient:
		return false, nil
	case ModeStrict:
		return true, nil
	}
	return false, fmt.Errorf("integrity: unknown mode %q: %w", mode, apperr.ErrInvalidArgument)
}

// Report builds a violation from format and args. It is always sent to the
// sink. The violation is returned only in strict mode, so callers can write
//
//	if err := c.Report(...); err != nil { return err }
//
// and fall through to their lenient behavior otherwise.
func (c *Checker) Report(format string, args ...any) error {
	if c == nil {
		c = Default()
	}
	v := &Violation{Message: fmt.Sprintf(format, args...)}
	if c.Sink != nil {
		c.Sink.Report(v)
	}
	if c.Strict {
		return v
	}
	return nil
}

var defaultChecker atomic.Pointer[Checker]

func init() {
	defaultChecker.Store(&Checker{Sink: LogSink{}})
}

// Default returns the process-wide checker: lenient, logging through slog.Default.
func Default() *Checker {
	return defaultChecker.Load()
}

// SetDefault replaces the process-wide checker.
func SetDefault(c *Checker) {
	if c == nil {
		c = &Checker{Sink: LogSink{}}
	}
	defaultChecker.Store(c)
}
