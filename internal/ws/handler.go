package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gerdinv/exec-engine/internal/engine"
	"github.com/gerdinv/exec-engine/internal/logging"
	"github.com/gerdinv/exec-engine/internal/monitoring"
	"github.com/gerdinv/exec-engine/internal/shared/types"
	"github.com/gerdinv/exec-engine/internal/shared/validation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Message is the client-to-server frame.
type Message struct {
	Type    string                  `json:"type"`
	Request *types.ExecutionRequest `json:"request,omitempty"`
}

// Handler manages WebSocket connections.
type Handler struct {
	svc     *engine.Service
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(svc *engine.Service, log *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{svc: svc, log: log.Named("ws"), metrics: metrics}
}

// HandleConnection handles WebSocket upgrade and messages.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.RecordWSConnect()
	defer h.metrics.RecordWSDisconnect()

	h.send(conn, gin.H{
		"type":    "system",
		"message": "connected to execution engine",
	})

	reqCtx := c.Request.Context()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read error", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case "execute":
			h.handleExecute(conn, msg, reqCtx)
		case "ping":
			h.send(conn, gin.H{"type": "pong", "timestamp": time.Now().Unix()})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

// handleExecute runs one request and streams lifecycle events back. The
// engine serializes executions, so a second execute on the same socket
// while one is in flight gets a busy error rather than queueing.
func (h *Handler) handleExecute(conn *websocket.Conn, msg Message, reqCtx context.Context) {
	if msg.Request == nil {
		h.sendError(conn, "execute message requires a request")
		return
	}
	if err := validation.ValidateRequest(msg.Request); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	h.send(conn, gin.H{
		"type":      "started",
		"timestamp": time.Now().Unix(),
	})

	ctx, cancel := context.WithTimeout(reqCtx, 2*time.Minute)
	defer cancel()

	result, err := h.svc.RunTestCases(ctx, msg.Request.SourceText, msg.Request.TestCases,
		types.Limits{TimeLimitMs: msg.Request.TimeLimitMs, MemLimitMB: msg.Request.MemLimitMB})
	if err != nil {
		if errors.Is(err, engine.ErrBusy) {
			h.sendError(conn, "an execution is already in flight")
			return
		}
		h.sendError(conn, err.Error())
		return
	}

	h.send(conn, gin.H{
		"type":      "result",
		"result":    result,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) send(conn *websocket.Conn, data interface{}) error {
	return conn.WriteJSON(data)
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) error {
	return h.send(conn, gin.H{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
