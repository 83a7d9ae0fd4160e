package harness

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
)

// workerEnv makes the test binary act as an isolated worker
const workerEnv = "HARNESS_TEST_WORKER"

func TestMain(m *testing.M) {
	if os.Getenv(workerEnv) == "1" {
		os.Exit(RunWorker(os.Stdin, os.Stdout, os.Stderr, nil))
	}
	os.Exit(m.Run())
}

type sinkRecorder struct {
	mu     sync.Mutex
	events []stream.Event
	err    error
}

func (s *sinkRecorder) Emit(ev stream.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *sinkRecorder) lines(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		if ev.Stream == name {
			out = append(out, ev.Line)
		}
	}
	return out
}

func (s *sinkRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type observerRecorder struct {
	mu         sync.Mutex
	executions []Status
	isolation  []string
	lines      map[string]int
	preloads   int
	bridges    int
}

func newObserverRecorder() *observerRecorder {
	return &observerRecorder{lines: make(map[string]int)}
}

func (o *observerRecorder) ObserveExecution(status Status, isolation string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executions = append(o.executions, status)
	o.isolation = append(o.isolation, isolation)
}

func (o *observerRecorder) ObserveStreamLines(name string, lines int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines[name] += lines
}

func (o *observerRecorder) ObservePreload(native.Report, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.preloads++
}

func (o *observerRecorder) ObserveBridge(native.BridgeReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bridges++
}

type countingOpener struct {
	mu     sync.Mutex
	opened map[string]int
}

func newCountingOpener() *countingOpener {
	return &countingOpener{opened: make(map[string]int)}
}

func (c *countingOpener) Open(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened[path]++
	return nil
}

func (c *countingOpener) counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.opened))
	for k, v := range c.opened {
		out[k] = v
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// chdirBack restores the working directory after a test that changes it
func chdirBack(t *testing.T) string {
	t.Helper()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return cwd
}

func realPath(t *testing.T, p string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return resolved
}
