package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"lazada_sync_v1_202608/internal/controller"
	"lazada_sync_v1_202608/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	authCtrl *controller.AuthController,
	productCtrl *controller.ProductController,
	connCtrl *controller.ConnectionController,
	syncCtrl *controller.SyncController) {
	// Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		// auth 公开接口
		auth := api.Group("/auth")
		{
			auth.POST("/register", authCtrl.Register)
			auth.POST("/login", authCtrl.Login)
		}

		// OAuth 回调由 Lazada 浏览器跳转触发，不带 JWT
		api.GET("/connections/lazada/callback", connCtrl.Callback)

		// 以下路由需要登录
		authed := api.Group("")
		authed.Use(middleware.JWTAuth())
		{
			me := authed.Group("/auth")
			{
				me.GET("/me", authCtrl.Me)
				me.PUT("/me", authCtrl.UpdateProfile)
				me.PUT("/password", authCtrl.ChangePassword)
				me.POST("/logout", authCtrl.Logout)
			}

			products := authed.Group("/products")
			{
				products.GET("", productCtrl.List)
				products.POST("", productCtrl.Create)
				products.GET("/statistics", productCtrl.Stats)
				products.POST("/bulk/status", productCtrl.BulkStatus)
				products.GET("/:id", productCtrl.Get)
				products.PUT("/:id", productCtrl.Update)
				products.DELETE("/:id", productCtrl.Delete)
				products.PUT("/:id/stock", productCtrl.SetStock)
				products.POST("/:id/stock/adjust", productCtrl.AdjustStock)

				// 同步相关
				products.POST("/:id/sync", syncCtrl.SyncProduct)
				products.GET("/:id/sync/status", syncCtrl.SyncStatus)
				products.GET("/:id/sync/logs", syncCtrl.ProductLogs)
			}

			connections := authed.Group("/connections")
			{
				connections.GET("", connCtrl.List)
				connections.GET("/statistics", connCtrl.Stats)
				connections.GET("/lazada/auth-url", connCtrl.AuthURL)
				connections.POST("/:id/test", connCtrl.Test)
				connections.DELETE("/:id", connCtrl.Disconnect)
			}

			sync := authed.Group("/sync")
			{
				sync.POST("/bulk", syncCtrl.BulkSync)
				sync.GET("/logs", syncCtrl.ListLogs)
				sync.GET("/statistics", syncCtrl.SyncStats)
			}

			authed.GET("/dashboard", syncCtrl.Dashboard)
		}
	}
}
