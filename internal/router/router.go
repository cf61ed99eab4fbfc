package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/habitflow/internal/config"
	"github.com/habitflow/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("habitflow_session", store))

	// 头像等上传文件的静态服务
	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiGroup := r.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/register", api.Register)
			auth.POST("/login", api.Login)
			auth.POST("/logout", api.Logout)
			auth.GET("/me", api.Me)
		}

		// 需要认证的路由
		authed := apiGroup.Group("")
		authed.Use(handler.AuthRequired())
		{
			authed.GET("/habits", api.GetHabits)
			authed.POST("/habits", api.CreateHabit)
			authed.GET("/habits/stream", api.StreamHabits)
			authed.GET("/habits/:id", api.GetHabit)
			authed.PUT("/habits/:id", api.UpdateHabit)
			authed.DELETE("/habits/:id", api.DeleteHabit)
			authed.POST("/habits/:id/toggle", api.ToggleHabit)
			authed.POST("/sync/clear-error", api.ClearSyncError)

			authed.GET("/profile", api.GetProfile)
			authed.PUT("/profile", api.UpdateProfile)
			authed.POST("/profile/avatar", api.UploadAvatar)
			authed.GET("/profile/events", api.GetRecentEvents)
		}
	}

	return r
}
