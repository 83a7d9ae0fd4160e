package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false
	cfg.Harness.Isolation = config.IsolationInProcess
	cfg.Harness.NativeDisabled = true
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	s, err := NewServer(cfg, &logging.Logger{Logger: zap.NewNop()}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNewRunnerSelectsIsolation(t *testing.T) {
	cfg := config.Default().Harness

	runner, _ := NewRunner(cfg, nil, nil)
	isolated, ok := runner.(*harness.Isolated)
	require.True(t, ok)
	assert.NotEmpty(t, isolated.Command())

	cfg.WorkerCommand = []string{"/opt/harness", "worker"}
	runner, _ = NewRunner(cfg, nil, nil)
	assert.Equal(t, []string{"/opt/harness", "worker"}, runner.(*harness.Isolated).Command())

	cfg.Isolation = config.IsolationInProcess
	runner, registry := NewRunner(cfg, nil, nil)
	controller, ok := runner.(*harness.Controller)
	require.True(t, ok)
	assert.Same(t, registry, controller.Registry())
	assert.Same(t, registry, Registry(runner))
}

func TestNativeConfig(t *testing.T) {
	cfg := config.Default().Harness
	cfg.LibMarker = ".dylib"
	cfg.NativeDisabled = true
	cfg.PriorityRules = nil

	n := NativeConfig(cfg)
	assert.Equal(t, ".dylib", n.Marker)
	assert.Equal(t, "libopenblas.so", n.BridgeLibrary)
	assert.True(t, n.Disabled)
	assert.NotEmpty(t, n.Rules)
	assert.Equal(t, ".dylib", Locator(cfg).Marker())
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Harness.Isolation = "thread"
	_, err := NewServer(cfg, nil, nil)
	assert.Error(t, err)
}

func TestExecuteEndpoint(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+"/execute", "application/json",
		strings.NewReader(`{"runId":"run_srv","code":"print('hi')"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res harness.Result
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(body, &res))
	assert.Equal(t, "run_srv", res.RunID)
	assert.Equal(t, harness.StatusCompleted, res.Status)
	assert.Equal(t, "hi\n", res.Stdout)
}

func TestMetricsEndpointIsCompressed(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+"/execute", "application/json", strings.NewReader(`{"code":"print(1)"}`))
	require.NoError(t, err)
	resp.Body.Close()

	// The default transport decompresses transparently and hides the header
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err = http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `harness_executions_total{isolation="inprocess",status="completed"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestWebSocketRoute(t *testing.T) {
	ts := newTestServer(t, testConfig())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Accept-Encoding": {"gzip"}})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"connected"`)
}

func TestServeStopsOnCancel(t *testing.T) {
	s, err := NewServer(testConfig(), &logging.Logger{Logger: zap.NewNop()}, nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
