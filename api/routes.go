package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h *Handler) {
	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		// 排行与成绩查询
		api.GET("/summary", h.GetSummary)
		api.GET("/users/:id/stats", h.GetUserStats)
		api.GET("/users/:id/stats/first", h.GetFirstUserStats)

		// 名册管理 /api/admin
		admin := api.Group("/admin")
		{
			admin.POST("/hardware", h.CreateHardware)
			admin.PUT("/hardware/:id", h.UpdateHardware)
			admin.DELETE("/hardware/:id", h.DeleteHardware)

			admin.POST("/teams", h.CreateTeam)
			admin.PUT("/teams/:id", h.UpdateTeam)
			admin.DELETE("/teams/:id", h.DeleteTeam)

			admin.POST("/users", h.CreateUser)
			admin.PUT("/users/:id", h.UpdateUser)
			admin.DELETE("/users/:id", h.DeleteUser)

			// 计算与赛季管理
			admin.POST("/recompute", h.RecomputeAll)
			admin.POST("/reset", h.EpochReset)
			admin.POST("/users/:id/offset", h.ApplyOffset)
		}

		// 调试接口，仅用于观察缓存内容
		api.GET("/debug/caches", h.DumpCaches)
	}
}
