package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richardliu001/payment-intents/internal/service"
	"go.uber.org/zap"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

// HealthChecker reports storage health.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// Handler bundles what the routes need.
type Handler struct {
	intents     *service.PaymentIntentService
	coordinator *service.IdempotencyCoordinator
	health      HealthChecker
	log         *zap.SugaredLogger
}

func NewHandler(intents *service.PaymentIntentService, coordinator *service.IdempotencyCoordinator, health HealthChecker, log *zap.SugaredLogger) *Handler {
	return &Handler{intents: intents, coordinator: coordinator, health: health, log: log}
}

func RegisterHandlers(r *gin.Engine, h *Handler) {
	r.GET("/health", h.healthHandler())
	v1 := r.Group("/v1")
	{
		v1.POST("/payment_intents", h.createHandler())
		v1.GET("/payment_intents/:id", h.getHandler())
		v1.POST("/payment_intents/:id/confirm", h.confirmHandler())
	}
}

func (h *Handler) createHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreatePaymentIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		// reject bad input before any storage work
		if err := req.Validate(); err != nil {
			h.writeError(c, err)
			return
		}
		res, err := h.coordinator.ExecuteCreate(c.Request.Context(), c.GetHeader(idempotencyKeyHeader), req, h.intents.Create)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if res.Replayed {
			c.Header(replayedHeader, "true")
		}
		c.JSON(res.StatusCode, res.Response)
	}
}

func (h *Handler) getHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.writeError(c, service.ErrNotFound)
			return
		}
		pi, err := h.intents.Get(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, service.NewPaymentIntentResponse(pi))
	}
}

func (h *Handler) confirmHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.writeError(c, service.ErrNotFound)
			return
		}
		pi, err := h.intents.Confirm(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, service.NewPaymentIntentResponse(pi))
	}
}

func (h *Handler) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := h.health.Health(c.Request.Context())
		if stats["status"] != "up" {
			c.JSON(http.StatusServiceUnavailable, stats)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// writeError maps each error kind to exactly one status code.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": detail(err, service.ErrValidation)})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": detail(err, service.ErrConflict)})
	case errors.Is(err, service.ErrIdempotencyInconsistent):
		h.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		h.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// detail drops the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
