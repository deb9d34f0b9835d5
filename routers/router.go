package routers

import (
	"videogen-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter(h *api.GenerationHandler) *gin.Engine {
	r := gin.Default()
	r.GET("/health", api.Health)
	v1 := r.Group("/v1/api")
	{
		v1.POST("/generations", h.CreateGeneration)
		v1.GET("/generations/:generation_id", h.GetGeneration)
		v1.GET("/sessions/:session_id/active", h.GetActiveGeneration)
	}
	r.GET("/generations/:generation_id/wss", h.ProgressWebSocket)
	return r
}
