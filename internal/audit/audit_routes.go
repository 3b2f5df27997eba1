package audit

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-payaudit/internal/middleware"
)

func RegisterRoutes(api *gin.RouterGroup, handler *Handler, rdb *redis.Client) {
	audits := api.Group("/audits")
	{
		if rdb != nil {
			audits.POST("", middleware.Idempotency(rdb), handler.RunAudit)
		} else {
			audits.POST("", handler.RunAudit)
		}
		audits.GET("/:processingId", handler.GetReport)
	}
}
