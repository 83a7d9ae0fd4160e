package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the breaker rejects attempts
var ErrOpen = errors.New("circuit breaker is open")

// State of a breaker
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a breaker. Zero values select defaults.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker
	Threshold uint32
	// Cooldown is how long the breaker stays open before one probe is let through
	Cooldown time.Duration
	// OnStateChange is called after each transition, outside the lock
	OnStateChange func(name string, from, to State)
}

// Counts holds the statistics since the last transition
type Counts struct {
	Attempts            uint32
	Failures            uint32
	ConsecutiveFailures uint32
}

// Attempt is a permit returned by Allow; report its outcome with Done
type Attempt struct {
	b          *Breaker
	generation uint64
}

// Breaker stops launching work that keeps failing. Closed admits every
// attempt; Open rejects all until Cooldown passes; HalfOpen admits a single
// probe whose outcome closes or reopens the breaker.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu         sync.Mutex
	state      State
	counts     Counts
	openedAt   time.Time
	probing    bool
	generation uint64
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = 5
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
}

// Name returns the name of the breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	reopened := b.advance()
	state := b.state
	b.mu.Unlock()

	if reopened {
		b.notify(StateOpen, StateHalfOpen)
	}
	return state
}

// Counts returns a copy of the counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Allow admits one attempt or returns ErrOpen
func (b *Breaker) Allow() (*Attempt, error) {
	b.mu.Lock()
	reopened := b.advance()
	var a *Attempt
	switch {
	case b.state == StateOpen, b.state == StateHalfOpen && b.probing:
	default:
		if b.state == StateHalfOpen {
			b.probing = true
		}
		b.counts.Attempts++
		a = &Attempt{b: b, generation: b.generation}
	}
	b.mu.Unlock()

	if reopened {
		b.notify(StateOpen, StateHalfOpen)
	}
	if a == nil {
		return nil, ErrOpen
	}
	return a, nil
}

// Done records the outcome of the attempt. Outcomes of attempts admitted
// before the latest transition are ignored.
func (a *Attempt) Done(ok bool) {
	b := a.b
	b.mu.Lock()
	if a.generation != b.generation {
		b.mu.Unlock()
		return
	}

	from := b.state
	if ok {
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
		}
	} else {
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		if b.state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.Threshold {
			b.transition(StateOpen)
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// advance moves Open to HalfOpen once the cooldown has elapsed
func (b *Breaker) advance() bool {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.transition(StateHalfOpen)
		return true
	}
	return false
}

func (b *Breaker) transition(to State) {
	b.state = to
	b.counts = Counts{}
	b.probing = false
	b.generation++
	if to == StateOpen {
		b.openedAt = b.now()
	}
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
