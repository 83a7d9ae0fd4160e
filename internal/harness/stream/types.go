package stream

import "time"

// Stream names carried on events
const (
	Stdout = "stdout"
	Stderr = "stderr"
)

// Event is one complete line produced by a running script
type Event struct {
	RunID     string    `json:"runId"`
	Stream    string    `json:"stream"`
	Line      string    `json:"line"`
	Timestamp time.Time `json:"-"`
}

// TimestampMs returns the event time in Unix milliseconds
func (e Event) TimestampMs() int64 {
	return e.Timestamp.UnixMilli()
}

// Sink receives live events while a script runs
type Sink interface {
	Emit(ev Event) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ev Event) error

// Emit calls f(ev)
func (f SinkFunc) Emit(ev Event) error {
	return f(ev)
}

// Fanout delivers each event to every sink in order. The first error is
// returned but delivery continues to the remaining sinks.
type Fanout []Sink

// Emit forwards ev to all sinks
func (f Fanout) Emit(ev Event) error {
	var first error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Emit(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
