package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/moodmap-backend-go/internal/config"
	"github.com/jengzang/moodmap-backend-go/internal/handler"
	"github.com/jengzang/moodmap-backend-go/internal/middleware"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Emotions *handler.EmotionHandler
	Maps     *handler.MapHandler
	Missions *handler.MissionHandler
	Admin    *handler.AdminHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS 中间件
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "MoodMap Backend API is running",
		})
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 情绪目录与地图（公开，按 IP 限流）
		public := api.Group("", middleware.RateLimit(120, time.Minute))
		{
			public.GET("/emotions/catalog", h.Emotions.Catalog)
			public.GET("/map/cells/:cellID", h.Maps.GetCellAggregate)
			public.GET("/map/tiles", h.Maps.GetTiles)
		}

		// 需要登录的接口（先认证，再按用户限流）
		authed := api.Group("", middleware.Auth(cfg.JWTSecret), middleware.RateLimit(120, time.Minute))
		{
			authed.POST("/emotions", h.Emotions.Submit)
			authed.GET("/emotions/mine", h.Emotions.ListMine)
			authed.DELETE("/emotions/:id", h.Emotions.Delete)
			authed.GET("/missions", h.Missions.GetProgress)

			// 维护接口（仅限管理员令牌）
			admin := authed.Group("/admin", middleware.RequireAdmin())
			{
				admin.POST("/cells/:cellID/recompute", h.Admin.Recompute)
				admin.POST("/sweep", h.Admin.Sweep)
			}
		}
	}

	return r
}
