package native

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadOrderAndIdempotence(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"libext.so":           "x",
		"libopenblas.so.0":    "x",
		"deps/libstdc++.so.6": "x",
		"deps/libgfortran.so": "x",
		"deps/notes.txt":      "x",
	})

	opener := newCountingOpener()
	registry := NewRegistry()
	p := NewPreloader(NewLocator(DefaultLocatorConfig()), registry, opener)

	first := p.Preload([]string{root})
	assert.Equal(t, []string{"libopenblas.so.0", "libext.so", "libgfortran.so", "libstdc++.so.6"}, opener.order)
	assert.Equal(t, 4, first.Count(Loaded))
	assert.Equal(t, 4, registry.Len())

	second := p.Preload([]string{root, root})
	assert.Equal(t, 0, second.Count(Loaded))
	assert.Equal(t, 4, second.Count(Skipped))

	for path, n := range opener.opened {
		assert.Equal(t, 1, n, path)
	}
	assert.Same(t, registry, p.Registry())
}

func TestPreloadFailureDoesNotAbortBatch(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"liba.so": "x",
		"libb.so": "x",
		"libc.so": "x",
	})

	opener := newCountingOpener()
	opener.fail["libb.so"] = true
	registry := NewRegistry()
	p := NewPreloader(NewLocator(DefaultLocatorConfig()), registry, opener)

	report := p.Preload([]string{root})
	require.Len(t, report.Attempts, 3)
	assert.Equal(t, Loaded, report.Attempts[0].Outcome)
	assert.Equal(t, Failed, report.Attempts[1].Outcome)
	assert.ErrorIs(t, report.Attempts[1].Err, assert.AnError)
	assert.Equal(t, Loaded, report.Attempts[2].Outcome)

	assert.False(t, registry.Contains(filepath.Join(root, "libb.so")))
	assert.Equal(t, []string{filepath.Join(root, "liba.so"), filepath.Join(root, "libc.so")}, registry.Snapshot())

	// A failed library is retried on the next pass.
	opener.fail["libb.so"] = false
	again := p.Preload([]string{root})
	assert.Equal(t, 1, again.Count(Loaded))
	assert.Equal(t, 2, again.Count(Skipped))
}

func TestPreloadSkipsDirectoriesNamedLikeLibraries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "weird.so.d"), 0o755))
	writeTree(t, root, map[string]string{"libok.so": "x"})

	opener := newCountingOpener()
	report := NewPreloader(NewLocator(DefaultLocatorConfig()), NewRegistry(), opener).Preload([]string{root})

	assert.Equal(t, 1, report.Count(Loaded))
	assert.Equal(t, 1, report.Count(Failed))
	assert.Equal(t, []string{"libok.so"}, opener.order)
}

func TestPreloadConcurrentRequestsOpenOnce(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"liba.so", "libb.so", "libc.so", "libd.so"} {
		files[name] = "x"
	}
	writeTree(t, root, files)

	opener := newCountingOpener()
	registry := NewRegistry()
	locator := NewLocator(DefaultLocatorConfig())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			NewPreloader(locator, registry, opener).Preload([]string{root})
		}()
	}
	wg.Wait()

	assert.Len(t, opener.opened, 4)
	for path, n := range opener.opened {
		assert.Equal(t, 1, n, path)
	}
}

func TestDLOpenerRejectsNonSharedObjects(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"libc.so": "/* GNU ld script */\nGROUP ( /lib/libc.so.6 )\n",
	})

	err := DLOpener{}.Open(filepath.Join(root, "libc.so"))
	assert.ErrorIs(t, err, ErrNotSharedObject)
}

func TestDLOpenerMissingFile(t *testing.T) {
	err := DLOpener{}.Open(filepath.Join(t.TempDir(), "libnope.so"))
	assert.Error(t, err)
}

func TestRegistryLoadOnce(t *testing.T) {
	r := NewRegistry()
	calls := 0
	open := func(string) error { calls++; return nil }

	loaded, err := r.LoadOnce("/lib/a.so", open)
	require.NoError(t, err)
	assert.True(t, loaded)

	loaded, err = r.LoadOnce("/lib/a.so", open)
	require.NoError(t, err)
	assert.False(t, loaded)

	assert.Equal(t, 1, calls)
	assert.True(t, r.Contains("/lib/a.so"))
	assert.Equal(t, []string{"/lib/a.so"}, r.Snapshot())
}
