package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"messaging/backend/internal/config"
	"messaging/backend/internal/health"
	"messaging/backend/internal/middleware"
	"messaging/backend/internal/monitoring"
	"messaging/backend/internal/service"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	users    *service.UserService
	messages *service.MessageService
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	UserService    *service.UserService
	MessageService *service.MessageService
	Metrics        *monitoring.Metrics   // 为 nil 时不挂载指标中间件与 /metrics
	Health         *health.HealthChecker // 为 nil 时只提供 /health
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics, logger)
		router.Use(mm.PanicRecovery())
		router.Use(mm.HTTPMetrics())
		router.Use(mm.BusinessMetrics())
	} else {
		router.Use(gin.Recovery())
	}
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(deps.Config.Server.BodyLimit))

	// CORS 配置
	origins := deps.Config.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := gincors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Max-Body-Size"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		users:    deps.UserService,
		messages: deps.MessageService,
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		results := deps.Health.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if results["storage"] != "OK" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, results)
	})
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	v1 := router.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", handler.createUser)
			users.GET("", handler.listUsers)
			users.GET("/:id", handler.getUser)
			users.GET("/:id/sent", handler.getSentMessages)
			users.GET("/:id/inbox", handler.getInboxMessages)
		}

		v1.POST("/messages", handler.sendMessage)
		v1.GET("/messages/:id", handler.getMessage)

		v1.POST("/deliveries/:id/read", handler.markAsRead)
	}

	router.NoRoute(func(c *gin.Context) {
		Fail(c, http.StatusNotFound, "route_not_found", "接口不存在")
	})

	return router
}
