package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gerdinv/exec-engine/internal/engine"
	"github.com/gerdinv/exec-engine/internal/logging"
	"github.com/gerdinv/exec-engine/internal/shared/types"
	"github.com/gerdinv/exec-engine/internal/shared/validation"
)

// Handlers bundles the HTTP handlers around the execution service.
type Handlers struct {
	svc *engine.Service
	log *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(svc *engine.Service, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{svc: svc, log: log.Named("http")}
}

// Root returns service metadata.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "exec-engine",
		"status":  "running",
	})
}

// Health reports worker liveness via the protocol ping.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			// A busy worker is a live worker.
			c.JSON(http.StatusOK, gin.H{"status": "busy"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Execute runs submitted code against its test cases and returns the
// normalized result.
func (h *Handlers) Execute(c *gin.Context) {
	var req types.ExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.RunTestCases(c.Request.Context(), req.SourceText, req.TestCases,
		types.Limits{TimeLimitMs: req.TimeLimitMs, MemLimitMB: req.MemLimitMB})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrBusy):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "an execution is already in flight"})
		case errors.Is(err, engine.ErrNotInitialized), errors.Is(err, engine.ErrTerminated):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			h.log.Error("execution failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
