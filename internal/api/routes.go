package api

import (
	"net/http"

	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/config"
	"github.com/AbodeTech/Liquidity-sub001/internal/container"
	"github.com/AbodeTech/Liquidity-sub001/internal/realtime"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 配置路由
func SetupRoutes(c *container.Container, cfg *config.Config) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	if cfg != nil {
		router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	}
	router.Use(RateLimitMiddleware(100, 200))

	// 健康检查
	healthController := NewHealthController(c.DB(), c.Hub())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	router.GET("/ws/applications", realtime.Handler(c.Hub(), c.TokenValidator()))

	// 未匹配路由统一 JSON 404
	router.NoRoute(func(ctx *gin.Context) {
		Error(ctx, http.StatusNotFound, "route not found", "")
	})

	draftController := NewDraftController(c.DraftService())
	documentController := NewDocumentController(c.DocumentService())
	applicationController := NewApplicationController(c.ApplicationService())
	statisticsController := NewStatisticsController(c.StatisticsService())

	// API v1 路由组,全部需要认证
	v1 := router.Group("/api/v1")
	v1.Use(auth.AuthMiddleware(c.TokenValidator()))
	{
		// 草稿管理路由,所有权在服务层校验
		drafts := v1.Group("/drafts")
		{
			drafts.POST("", draftController.Create)
			drafts.GET("", draftController.List)
			drafts.GET("/:id", draftController.Get)
			drafts.PATCH("/:id", draftController.Update)
			drafts.DELETE("/:id", draftController.Delete)

			drafts.POST("/:id/documents", documentController.Upload)
			drafts.DELETE("/:id/documents", documentController.Delete)

			drafts.POST("/:id/submit", applicationController.Submit)
		}

		// 文档路由
		documents := v1.Group("/documents")
		{
			documents.POST("", documentController.Register)
			documents.GET("/:id", documentController.Get)
		}

		// 申请路由,读操作申请人限定本人,写操作管理员专属
		applications := v1.Group("/applications")
		{
			applications.GET("", applicationController.List)
			applications.GET("/:id", applicationController.Get)

			review := applications.Group("")
			review.Use(auth.RequireRole(types.RoleAdministrator))
			{
				review.POST("/:id/review", applicationController.Review)
				review.POST("/:id/approve", applicationController.Approve)
				review.POST("/:id/reject", applicationController.Reject)
				review.PUT("/:id/notes", applicationController.AddNotes)
				review.DELETE("/:id", applicationController.Archive)
			}
		}

		// 统计路由,管理员专属
		statistics := v1.Group("/statistics")
		statistics.Use(auth.RequireRole(types.RoleAdministrator))
		{
			statistics.GET("/overview", statisticsController.Overview)
			statistics.GET("/status", statisticsController.ByStatus)
			statistics.GET("/types", statisticsController.ByType)
			statistics.GET("/trends", statisticsController.Trends)
		}
	}

	return router
}
