package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Logger receives trace events. The engine calls Log from its event loop,
// so implementations must be safe for concurrent use and must not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// tee fans one event out to several sinks in order.
type tee []Logger

func (t tee) Log(event Event) {
	for _, l := range t {
		l.Log(event)
	}
}

// Tee returns a Logger that forwards to every non-nil sink. With no sinks
// it returns NoopLogger; with one it returns that sink unchanged.
func Tee(sinks ...Logger) Logger {
	var t tee
	for _, l := range sinks {
		if l != nil {
			t = append(t, l)
		}
	}
	switch len(t) {
	case 0:
		return NoopLogger{}
	case 1:
		return t[0]
	}
	return t
}

// FileLogger appends events to a trace file (conventionally *.oblog).
type FileLogger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	enc     *cbor.Encoder
	written int
	closed  bool
}

// NewFileLogger opens path for appending, creating it if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{path: path, file: f, enc: newTraceEncoder(f)}, nil
}

// Log encodes event into the file. Events that fail to encode are dropped
// and events logged after Close are ignored.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.enc.Encode(event) == nil {
		l.written++
	}
}

// Path returns the file the logger writes to.
func (l *FileLogger) Path() string { return l.path }

// Written returns how many events this logger has stored.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Close closes the file. It may be called more than once.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var (
	_ Logger = NoopLogger{}
	_ Logger = tee(nil)
	_ Logger = (*FileLogger)(nil)
)
