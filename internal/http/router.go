// README: HTTP router registration (Gin).
package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"resbot/internal/bot"
	"resbot/internal/http/handlers"
	"resbot/internal/http/middleware"
	"resbot/internal/metrics"
)

func NewRouter(engine *bot.Engine, reg *metrics.Registry, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))

	messageHandler := handlers.NewMessageHandler(engine)
	r.POST("/api/messages", messageHandler.Handle)

	webhookHandler := handlers.NewWebhookHandler(engine)
	r.POST("/api/webhooks/payment", webhookHandler.Handle)

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, reg.Snapshot())
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(nethttp.StatusOK, "OK")
	})

	return r
}
