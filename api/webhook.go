package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kinobot/internal/tg"
)

// WebhookTimeout bounds the handling of one pushed update.
const WebhookTimeout = 9 * time.Second

type WebhookHandler struct {
	handle tg.Handler
	secret string
	log    *zap.Logger
}

// Receive handles POST /webhook/:secret. Telegram retries on non-2xx, so
// updates the bot ignores are still acknowledged with 200.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.secret)) != 1 {
		c.Status(http.StatusNotFound)
		return
	}

	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.log.Warn("bad webhook payload", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	if ev, ok := tg.EventFromUpdate(upd); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), WebhookTimeout)
		h.handle(ctx, ev)
		cancel()
	}
	c.String(http.StatusOK, "ok")
}
