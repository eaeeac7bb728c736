// Package api is the HTTP surface: a health page and the Telegram webhook.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kinobot/internal/tg"
)

const HealthText = "Bot ishlayapti!"

// NewRouter builds the HTTP router. The webhook route is only mounted when
// handle is non-nil.
func NewRouter(handle tg.Handler, secret string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", Health)
	r.GET("/health", Health)

	if handle != nil {
		wh := &WebhookHandler{handle: handle, secret: secret, log: log}
		r.POST("/webhook/:secret", wh.Receive)
	}
	return r
}

// Health responds to GET / and GET /health.
func Health(c *gin.Context) {
	c.String(http.StatusOK, HealthText)
}
