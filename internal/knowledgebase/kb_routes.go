package knowledgebase

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(api *gin.RouterGroup, handler *Handler) {
	kb := api.Group("/knowledge")
	{
		kb.POST("/documents/:id/extract", handler.BeginExtraction)
		kb.POST("/documents/:id/publish", handler.Publish)
		kb.GET("/rules", handler.LookupRules)
	}
}
