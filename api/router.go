package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/broadcast"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/session"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/vote"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, hub *broadcast.Hub) {
	api := router.Group("/api")
	{
		// 参与者相关的路由
		api.POST("/join", session.Join)
		api.POST("/leave", session.Leave)
		api.POST("/vote", vote.Submit)
		api.GET("/state", session.CurrentState(false))
		api.GET("/categories", session.ListCategories)

		// 参与者事件流 (SSE)
		api.GET("/events", broadcast.StreamHandler(hub, broadcast.AudienceParticipant))

		// 管理员路由组，全部需要管理密钥
		admin := api.Group("/admin", session.RequireAdminKey())
		{
			admin.POST("/categories/:id/start", session.StartCategory)
			admin.POST("/categories/:id/stop", session.StopCategory)
			admin.POST("/categories/:id/reveal", session.RevealWinner)
			admin.POST("/reset", session.Reset)

			admin.GET("/status", session.AdminStatus)
			admin.GET("/stats", session.AdminStats)
			admin.GET("/state", session.CurrentState(true))
			admin.GET("/categories/:id/results", session.CategoryResults)

			// 管理员事件流 (SSE)
			admin.GET("/events", broadcast.StreamHandler(hub, broadcast.AudienceAdmin))
		}
	}
}
