// Package searchpath holds the module search path list shared by every script
// run in the process, and the per-run journal that makes each run's changes
// reversible.
package searchpath

import "sync"

// List is an ordered, duplicate-free list of directories
type List struct {
	mu      sync.RWMutex
	entries []string
}

// New creates a list seeded with entries. Duplicates and empty strings are dropped.
func New(entries ...string) *List {
	l := &List{}
	for _, e := range entries {
		if e == "" || l.indexLocked(e) >= 0 {
			continue
		}
		l.entries = append(l.entries, e)
	}
	return l
}

// Snapshot returns a copy of the current entries
func (l *List) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string{}, l.entries...)
}

// Contains reports whether p is in the list
func (l *List) Contains(p string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexLocked(p) >= 0
}

// Len returns the number of entries
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// insert places p at index i (clamped) unless already present
func (l *List) insert(i int, p string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p == "" || l.indexLocked(p) >= 0 {
		return false
	}
	if i < 0 {
		i = 0
	}
	if i > len(l.entries) {
		i = len(l.entries)
	}
	l.entries = append(l.entries, "")
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = p
	return true
}

// remove deletes p and returns its former index, or -1
func (l *List) remove(p string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(p)
	if i < 0 {
		return -1
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return i
}

func (l *List) indexLocked(p string) int {
	for i, e := range l.entries {
		if e == p {
			return i
		}
	}
	return -1
}
