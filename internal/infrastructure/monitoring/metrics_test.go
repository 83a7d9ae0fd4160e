package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
)

func TestObserveExecution(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveExecution(harness.StatusCompleted, harness.IsolationProcess, 10*time.Millisecond)
	m.ObserveExecution(harness.StatusCompleted, harness.IsolationProcess, 20*time.Millisecond)
	m.ObserveExecution(harness.StatusTimedOut, harness.IsolationInProcess, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Executions.WithLabelValues("completed", "process")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("timed_out", "inprocess")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ExecutionDuration))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Executions["completed"])
	assert.Equal(t, int64(1), snap.Executions["timed_out"])
}

func TestObserveStreamLines(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveStreamLines("stdout", 3)
	m.ObserveStreamLines("stdout", 0)
	m.ObserveStreamLines("stderr", 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.StreamLines.WithLabelValues("stdout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamLines.WithLabelValues("stderr")))
}

func TestEventSink(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	sink := m.EventSink()

	require.NoError(t, sink.Emit(stream.Event{Stream: stream.Stdout, Line: "a"}))
	require.NoError(t, sink.Emit(stream.Event{Stream: stream.Stdout, Line: ""}))
	require.NoError(t, sink.Emit(stream.Event{Stream: stream.Stderr, Line: "b"}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StreamEvents.WithLabelValues("stdout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamEvents.WithLabelValues("stderr")))
	assert.Zero(t, testutil.ToFloat64(m.StreamLines.WithLabelValues("stdout")))
}

func TestObserveNative(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObservePreload(native.Report{Attempts: []native.Attempt{
		{Candidate: native.Candidate{Path: "/a.so"}, Outcome: native.Loaded},
		{Candidate: native.Candidate{Path: "/b.so"}, Outcome: native.Loaded},
		{Candidate: native.Candidate{Path: "/c.so"}, Outcome: native.Failed, Err: errors.New("bad elf")},
	}}, 2)
	m.ObserveBridge(native.BridgeReport{
		Found:    "/lib/liblinalg.so.3",
		Resolved: "/lib/liblinalg.so",
		Copies: []native.CopyAttempt{
			{Target: "/lib/liblinalg.so", Outcome: native.CopyCreated},
			{Target: "/pkg/liblinalg.so", Outcome: native.CopyExists},
		},
	})
	m.ObserveBridge(native.BridgeReport{})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Preloads.WithLabelValues("loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Preloads.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LibrariesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeCopies.WithLabelValues("copied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeCopies.WithLabelValues("exists")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeResolution.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeResolution.WithLabelValues("false")))
	assert.Equal(t, 2, m.Snapshot().LibrariesLoaded)
}

func TestWebSocketMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordWSMessage("out", "log")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSMessages.WithLabelValues("out", "log")))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/items/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "item")
	})

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}

func TestMiddlewareSkipsWebSocketUpgrades(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ws", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 0, testutil.CollectAndCount(m.RequestsTotal))
	assert.Equal(t, int64(0), m.Snapshot().TotalRequests)
}

func TestRegistryIsolation(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["harness_uptime_seconds"])
	assert.True(t, names["harness_native_libraries_loaded"])

	// a second collector on a fresh registry must not collide
	assert.NotPanics(t, func() { NewMetrics(prometheus.NewRegistry()) })
}
