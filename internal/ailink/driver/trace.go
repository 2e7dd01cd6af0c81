package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TraceEntry is one judge request/response exchange.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Model       string          `json:"model,omitempty"`
	PromptSlug  string          `json:"prompt_slug,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Tracer appends entries as NDJSON. Verification fans out judge calls, so
// writes are serialized.
type Tracer struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

// NewTracer writes entries to w. Close closes w when it is an io.Closer.
func NewTracer(w io.Writer) *Tracer {
	t := &Tracer{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		t.c = c
	}
	return t
}

var (
	activeMu sync.RWMutex
	active   *Tracer
)

// EnableTracing appends traces to path until the returned func is called.
func EnableTracing(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	t := NewTracer(f)

	activeMu.Lock()
	prev := active
	active = t
	activeMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	return func() error {
		activeMu.Lock()
		if active == t {
			active = nil
		}
		activeMu.Unlock()
		return t.Close()
	}, nil
}

// IsTracingEnabled reports whether a trace file is open.
func IsTracingEnabled() bool {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active != nil
}

// Trace records entry when tracing is enabled.
func Trace(entry TraceEntry) {
	activeMu.RLock()
	t := active
	activeMu.RUnlock()
	t.Write(entry)
}

// Write records entry. A nil tracer discards it.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}

// Close releases the underlying writer. Later writes are dropped.
func (t *Tracer) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enc = nil
	if t.c == nil {
		return nil
	}
	c := t.c
	t.c = nil
	return c.Close()
}
