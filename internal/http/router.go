package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"notistream/internal/config"
	"notistream/internal/http/controller"
	"notistream/internal/http/middleware"
)

func NewRouter(cfg *config.Config, handler *controller.Handler, metrics *middleware.Metrics, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.ZapLogger(logger), middleware.ZapRecovery(logger))
	router.Use(otelgin.Middleware(cfg.OTELServiceName))
	if metrics != nil {
		router.Use(metrics.Handler())
	}

	router.GET("/health", func(c *gin.Context) {
		c.Status(200)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", middleware.Auth(cfg.JWTSecret))
	{
		notifications := api.Group("/notifications")
		notifications.GET("", handler.ListNotifications)
		notifications.POST("", handler.CreateNotification)
		notifications.GET("/stream", handler.Stream)
		notifications.PATCH("/read-all", handler.MarkAllAsRead)
		notifications.PATCH("/:id/read", handler.MarkAsRead)
		notifications.POST("/:id/sent", handler.MarkAsSent)
		notifications.POST("/:id/failed", handler.MarkAsFailed)
	}

	return router
}
