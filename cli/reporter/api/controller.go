package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Controller struct {
	Handler *Handler
	router  *gin.Engine
	server  *http.Server
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("Запрос API")
	}
}

func NewController(handler *Handler, auth Auth, port int32) *Controller {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", handler.Health)

	secured := router.Group("/", auth.Middleware())
	{
		secured.GET("/devices/:id/track", handler.GetTrack)
		secured.GET("/devices/:id/geojson", handler.GetGeoJSON)
		secured.POST("/reports", handler.RunReports)
		if handler.Events != nil {
			secured.GET("/events", gin.WrapH(handler.Events))
		}
	}

	return &Controller{
		Handler: handler,
		router:  router,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (c *Controller) Router() http.Handler {
	return c.router
}

// Run блокирует до остановки сервера
func (c *Controller) Run() error {
	if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка сервера API: %w", err)
	}
	return nil
}

func (c *Controller) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}
