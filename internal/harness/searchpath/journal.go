package searchpath

import "sync"

type opKind int

const (
	opInsert opKind = iota
	opRemove
)

type op struct {
	kind  opKind
	path  string
	index int
}

// Journal records one run's mutations of a List so they can be undone.
// Entries that were present before the run are never removed by Undo.
type Journal struct {
	list *List

	mu  sync.Mutex
	ops []op
}

// NewJournal starts a journal over l
func NewJournal(l *List) *Journal {
	return &Journal{list: l}
}

// List returns the underlying list
func (j *Journal) List() *List {
	return j.list
}

// InsertFront puts p at the head of the list if it is absent
func (j *Journal) InsertFront(p string) bool {
	if !j.list.insert(0, p) {
		return false
	}
	j.record(op{kind: opInsert, path: p})
	return true
}

// Append puts p at the tail of the list if it is absent
func (j *Journal) Append(p string) bool {
	if !j.list.insert(j.list.Len(), p) {
		return false
	}
	j.record(op{kind: opInsert, path: p})
	return true
}

// Remove deletes p from the list
func (j *Journal) Remove(p string) bool {
	idx := j.list.remove(p)
	if idx < 0 {
		return false
	}
	j.record(op{kind: opRemove, path: p, index: idx})
	return true
}

// Inserted returns the paths this journal added that are still recorded
func (j *Journal) Inserted() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []string
	for _, o := range j.ops {
		if o.kind == opInsert {
			out = append(out, o.path)
		}
	}
	return out
}

// Undo reverts every recorded mutation, newest first, and clears the journal
func (j *Journal) Undo() {
	j.mu.Lock()
	ops := j.ops
	j.ops = nil
	j.mu.Unlock()

	for i := len(ops) - 1; i >= 0; i-- {
		o := ops[i]
		switch o.kind {
		case opInsert:
			j.list.remove(o.path)
		case opRemove:
			j.list.insert(o.index, o.path)
		}
	}
}

func (j *Journal) record(o op) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, o)
}
