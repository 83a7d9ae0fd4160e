// Package id provides ID generation for the harness.
//
// Run identifiers are prefixed ULIDs (run_01J...), so they sort by start time
// and read clearly in logs and live stream events. Connection identifiers for
// the WebSocket surface are random UUIDs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RunID identifies one script execution
type RunID string

// ConnID identifies one streaming connection
type ConnID string

// RunPrefix tags run IDs
const RunPrefix = "run"

// source hands out monotonic ULIDs: two runs started in the same millisecond
// still sort in start order
type source struct {
	mu      sync.Mutex
	entropy io.Reader
}

var runs = &source{entropy: ulid.Monotonic(rand.Reader, 0)}

func (s *source) next(now time.Time) ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy)
}

// NewRunID generates a new run ID
func NewRunID() RunID {
	return RunID(RunPrefix + "_" + runs.next(time.Now()).String())
}

// ParseRunID checks that s is a generated run ID
func ParseRunID(s string) (RunID, error) {
	rest, ok := strings.CutPrefix(s, RunPrefix+"_")
	if !ok {
		return "", fmt.Errorf("run id %q: missing %q prefix", s, RunPrefix+"_")
	}
	if _, err := ulid.ParseStrict(rest); err != nil {
		return "", fmt.Errorf("run id %q: %w", s, err)
	}
	return RunID(s), nil
}

// IsRunID reports whether s is a generated run ID
func IsRunID(s string) bool {
	_, err := ParseRunID(s)
	return err == nil
}

// Time returns when a generated run ID was created. Caller-supplied IDs
// have no time and return the zero value.
func (id RunID) Time() time.Time {
	rest, ok := strings.CutPrefix(string(id), RunPrefix+"_")
	if !ok {
		return time.Time{}
	}
	u, err := ulid.ParseStrict(rest)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// NewConnID generates a new connection ID
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

func (id RunID) String() string  { return string(id) }
func (id ConnID) String() string { return string(id) }
