package native

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative path -> content) under root
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func basenames(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, filepath.Base(c.Path))
	}
	return out
}

// countingOpener records every open and fails paths listed in fail
type countingOpener struct {
	mu     sync.Mutex
	opened map[string]int
	order  []string
	fail   map[string]bool
}

func newCountingOpener() *countingOpener {
	return &countingOpener{opened: make(map[string]int), fail: make(map[string]bool)}
}

func (o *countingOpener) Open(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened[path]++
	o.order = append(o.order, filepath.Base(path))
	if o.fail[filepath.Base(path)] {
		return assert.AnError
	}
	return nil
}
