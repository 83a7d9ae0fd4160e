package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/harness/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/harness/internal/shared/id"
)

// Frame types
const (
	TypeExecute = "execute"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeSystem  = "system"
	TypeLog     = "log"
	TypeResult  = "result"
	TypeError   = "error"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inbound is a client frame
type Inbound struct {
	Type    string           `json:"type"`
	Request *harness.Request `json:"request,omitempty"`
}

// LogFrame carries one line of live output
type LogFrame struct {
	Type        string `json:"type"`
	RunID       string `json:"runId"`
	Stream      string `json:"stream"`
	Line        string `json:"line"`
	TimestampMs int64  `json:"timestampMs"`
}

// ResultFrame carries the final result of a run
type ResultFrame struct {
	Type   string          `json:"type"`
	RunID  string          `json:"runId"`
	Result *harness.Result `json:"result"`
}

// Handler manages WebSocket connections
type Handler struct {
	runner  harness.Runner
	limits  apihttp.Limits
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(runner harness.Runner, limits apihttp.Limits, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits == (apihttp.Limits{}) {
		limits = apihttp.DefaultLimits()
	}
	return &Handler{
		runner:  runner,
		limits:  limits,
		metrics: metrics,
		logger:  logger,
	}
}

// conn serializes writes; gorilla allows one concurrent writer
type conn struct {
	ws      *websocket.Conn
	id      string
	mu      sync.Mutex
	metrics *monitoring.Metrics
}

func (c *conn) send(msgType string, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", msgType)
	}
	return nil
}

func (c *conn) sendError(msg string) error {
	return c.send(TypeError, gin.H{
		"type":      TypeError,
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(int64(h.limits.MaxBodyBytes()))

	cn := &conn{ws: ws, id: id.NewConnID().String(), metrics: h.metrics}
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	logger := h.logger.With(logging.ConnID(cn.id))

	// Runs are cancelled when the client goes away
	ctx, cancel := context.WithCancel(c.Request.Context())
	var runs sync.WaitGroup
	defer func() {
		cancel()
		runs.Wait()
	}()

	_ = cn.send(TypeSystem, gin.H{
		"type":    TypeSystem,
		"message": "connected",
		"connId":  cn.id,
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			_ = cn.sendError("invalid message")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case TypeExecute:
			req, err := h.prepare(msg.Request)
			if err != nil {
				_ = cn.sendError(err.Error())
				continue
			}
			runs.Add(1)
			go func() {
				defer runs.Done()
				h.execute(ctx, cn, req)
			}()
		case TypePing:
			_ = cn.send(TypePong, gin.H{"type": TypePong})
		default:
			_ = cn.sendError("unknown message type")
		}
	}
}

func (h *Handler) prepare(req *harness.Request) (harness.Request, error) {
	if req == nil {
		return harness.Request{}, errMissingRequest
	}
	if err := h.limits.ValidateRequest(*req); err != nil {
		return harness.Request{}, err
	}
	out := *req
	if out.RunID == "" {
		out.RunID = id.NewRunID().String()
	}
	return out, nil
}

// execute streams non-blank lines as log frames, then the result
func (h *Handler) execute(ctx context.Context, cn *conn, req harness.Request) {
	sinks := stream.Fanout{stream.SinkFunc(func(ev stream.Event) error {
		if strings.TrimSpace(ev.Line) == "" {
			return nil
		}
		return cn.send(TypeLog, LogFrame{
			Type:        TypeLog,
			RunID:       ev.RunID,
			Stream:      ev.Stream,
			Line:        ev.Line,
			TimestampMs: ev.TimestampMs(),
		})
	})}
	if h.metrics != nil {
		sinks = append(sinks, h.metrics.EventSink())
	}
	req.Sink = sinks

	res := h.runner.Execute(ctx, req)
	if err := cn.send(TypeResult, ResultFrame{Type: TypeResult, RunID: res.RunID, Result: res}); err != nil {
		h.logger.Debug("send result failed", logging.RunID(res.RunID), zap.Error(err))
	}
}
