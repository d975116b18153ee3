// Package router wires the document service routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docintel/internal/docintel/handler"
	"github.com/kart-io/docintel/internal/docintel/metrics"
)

// Register registers all service routes on the engine.
func Register(engine *gin.Engine, doc *handler.DocumentHandler, search *handler.SearchHandler, chat *handler.ChatHandler) {
	logger.Info("Registering document service routes...")

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "docintel",
			"endpoints": gin.H{
				"upload":    "POST /api/documents/upload",
				"documents": "GET /api/documents",
				"stats":     "GET /api/documents/stats",
				"search":    "POST /api/search",
				"chat":      "POST /api/chat",
				"health":    "GET /healthz",
			},
		})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, metrics.Get().Export("docintel"))
	})

	api := engine.Group("/api")
	{
		documents := api.Group("/documents")
		{
			documents.POST("/upload", doc.Upload)
			documents.GET("", doc.List)
			documents.GET("/stats", doc.Stats)
			documents.GET("/:id", doc.Get)
			documents.DELETE("/:id", doc.Delete)
			documents.GET("/:id/pages", doc.Pages)
			documents.GET("/:id/entities", doc.Entities)
		}

		api.POST("/search", search.Search)
		api.POST("/chat", chat.Chat)
	}

	logger.Info("HTTP routes registered")
}
