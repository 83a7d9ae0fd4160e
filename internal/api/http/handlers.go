package http

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/monitoring"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Options wires handlers to their dependencies
type Options struct {
	Runner    harness.Runner
	Registry  *native.Registry
	Locator   *native.Locator
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
	Isolation string
	Limits    Limits
}

// Handlers contains all HTTP handlers
type Handlers struct {
	runner    harness.Runner
	registry  *native.Registry
	locator   *native.Locator
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	isolation string
	limits    Limits
}

// NewHandlers creates a new handler set
func NewHandlers(opts Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = native.NewRegistry()
	}
	if opts.Locator == nil {
		opts.Locator = native.NewLocator(native.DefaultLocatorConfig())
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	return &Handlers{
		runner:    opts.Runner,
		registry:  opts.Registry,
		locator:   opts.Locator,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		isolation: opts.Isolation,
		limits:    opts.Limits,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "script execution harness",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"isolation": h.isolation,
		"native": gin.H{
			"libraries_loaded": h.registry.Len(),
			"marker":           h.locator.Marker(),
		},
	})
}

// Execute runs one request and returns its result. The status code is 200
// whatever the script did; only malformed requests are rejected.
func (h *Handlers) Execute(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(h.limits.MaxBodyBytes())+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	req, err := h.decode(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.runner.Execute(c.Request.Context(), req)
	c.JSON(http.StatusOK, res)
}

// decode parses and validates an execution request
func (h *Handlers) decode(body []byte) (harness.Request, error) {
	var req harness.Request
	if err := h.limits.ValidateBody(body); err != nil {
		return req, err
	}
	if err := sonic.Unmarshal(body, &req); err != nil {
		return req, errInvalidJSON(err)
	}
	if err := h.limits.ValidateRequest(req); err != nil {
		return req, err
	}
	return req, nil
}

// NativeLibraries lists the loaded library registry. With ?dir= it also
// reports what the locator finds under those directories.
func (h *Handlers) NativeLibraries(c *gin.Context) {
	loaded := h.registry.Snapshot()
	resp := gin.H{
		"count":  len(loaded),
		"loaded": loaded,
	}

	if dirs := c.QueryArray("dir"); len(dirs) > 0 {
		resp["directories"] = h.locator.Dirs(dirs)
		resp["candidates"] = h.locator.Scan(dirs)
	}
	c.JSON(http.StatusOK, resp)
}

// MetricsJSON returns the tracked metric values
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
