package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with middleware, health check and event routes.
func NewRouter(events *EventHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), CORS())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	events.RegisterRoutes(router)

	return router
}
