package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/structview/internal/app"
	"github.com/weiwangfds/structview/internal/handler"
	"github.com/weiwangfds/structview/internal/middleware"
)

// Router 路由配置
type Router struct {
	engine *gin.Engine
}

// NewRouter 创建路由实例
func NewRouter(a *app.App) *Router {
	if mode := a.Config.Server.Mode; mode != "" {
		gin.SetMode(mode)
	}

	engine := gin.New()
	// 上传文件超过该值时 multipart 解析写入临时文件
	engine.MaxMultipartMemory = 32 << 20

	historyHandler := handler.NewHistoryHandler(a.History, a.Config.Storage.MaxFileSize)
	plddtHandler := handler.NewPlddtHandler()
	systemHandler := handler.NewSystemHandler(a.Config, a.History, a.Mirror)

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog())
	engine.Use(middleware.RequestLogger(a.Config.RequestLog))

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/health", systemHandler.Health)

	// 与前端约定的接口
	api := engine.Group("/api")
	{
		api.POST("/upload", historyHandler.Upload)
		api.GET("/history", historyHandler.List)
		api.GET("/history/:id", historyHandler.Get)
		api.GET("/view/:id", historyHandler.View)
		api.GET("/download/:id", historyHandler.Download)
	}

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/info", systemHandler.Info)

		plddt := v1.Group("/plddt")
		{
			plddt.GET("/legend", plddtHandler.Legend)
			plddt.GET("/band", plddtHandler.Band)
		}

		system := v1.Group("/system")
		{
			system.GET("/consistency", systemHandler.Consistency)
		}
	}

	return &Router{engine: engine}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
