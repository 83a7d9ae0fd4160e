package stream

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Relay buffers everything written to one output stream and, when a sink is
// attached, emits each completed line as it arrives. The buffer always holds
// the exact concatenation of all accepted writes; sink failures never touch it.
//
// Two locks: mu guards the buffer and is never held across a sink call;
// emitMu keeps emissions in write order. Detach and Seal take only mu, so a
// slow sink cannot delay them.
type Relay struct {
	name  string
	runID string
	sink  Sink

	emitMu sync.Mutex

	mu       sync.Mutex
	buf      strings.Builder
	pending  string
	detached atomic.Bool
	emitted  atomic.Int64
	failures atomic.Int64
	now      func() time.Time
}

// NewRelay creates a relay for the named stream. sink may be nil.
func NewRelay(name, runID string, sink Sink) *Relay {
	return &Relay{
		name:  name,
		runID: runID,
		sink:  sink,
		now:   time.Now,
	}
}

// Name returns the stream name
func (r *Relay) Name() string {
	return r.name
}

// Write appends p to the buffer and relays completed lines
func (r *Relay) Write(p []byte) (int, error) {
	return r.WriteString(string(p))
}

// WriteString appends s to the buffer and relays completed lines
func (r *Relay) WriteString(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if r.sink == nil {
		r.mu.Lock()
		if !r.detached.Load() {
			r.buf.WriteString(s)
		}
		r.mu.Unlock()
		return len(s), nil
	}

	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	// Writers must not see an error after detach; the output is simply dropped.
	if r.detached.Load() {
		r.mu.Unlock()
		return len(s), nil
	}
	r.buf.WriteString(s)
	r.pending += s
	var lines []string
	for {
		idx := strings.IndexByte(r.pending, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, r.pending[:idx])
		r.pending = r.pending[idx+1:]
	}
	r.mu.Unlock()

	for _, line := range lines {
		r.emit(line)
	}
	return len(s), nil
}

// Flush emits the unterminated trailing fragment, if any
func (r *Relay) Flush() {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	fragment := r.pending
	r.pending = ""
	r.mu.Unlock()

	if fragment != "" && r.sink != nil {
		r.emit(fragment)
	}
}

// Detach stops the relay. Later writes are discarded and the sink is not
// called again, apart from an emission already in progress, which Detach does
// not wait for.
func (r *Relay) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detached.Store(true)
	r.pending = ""
}

// Seal detaches the relay and appends note to the buffer without relaying
// it. A non-empty buffer gets a newline before the note.
func (r *Relay) Seal(note string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detached.Store(true)
	r.pending = ""
	if note == "" {
		return
	}
	if r.buf.Len() > 0 {
		r.buf.WriteByte('\n')
	}
	r.buf.WriteString(note)
}

// String returns a snapshot of the buffer
func (r *Relay) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Len returns the buffer length in bytes
func (r *Relay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}

// Stats returns how many events were emitted and how many the sink rejected
func (r *Relay) Stats() (emitted, failures int) {
	return int(r.emitted.Load()), int(r.failures.Load())
}

// emit must be called with r.emitMu held and r.mu released
func (r *Relay) emit(line string) {
	if r.detached.Load() {
		return
	}
	ev := Event{
		RunID:     r.runID,
		Stream:    r.name,
		Line:      line,
		Timestamp: r.now(),
	}
	if err := safeEmit(r.sink, ev); err != nil {
		r.failures.Add(1)
		return
	}
	r.emitted.Add(1)
}

// safeEmit turns a panicking sink into an error
func safeEmit(sink Sink, ev Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sink panic: %v", rec)
		}
	}()
	return sink.Emit(ev)
}
