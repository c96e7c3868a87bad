package http

import (
	"github.com/gin-gonic/gin"
	"github.com/richardliu001/payment-intents/internal/config"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, corsCfg config.CORSConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))
	r.Use(CORSMiddleware(corsCfg.AllowedOrigins))
	RegisterHandlers(r, h)
	return r
}
