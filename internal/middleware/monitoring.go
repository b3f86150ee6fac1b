package middleware

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"messaging/backend/internal/monitoring"
)

// 处理器写入、业务指标中间件读取的上下文键
const (
	KeyErrorCode      = "messaging.err_code"
	KeyRecipientCount = "messaging.recipient_count"
	KeyReadTransition = "messaging.read_transition"
)

// MonitoringMiddleware 监控中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics, logger *zap.Logger) *MonitoringMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringMiddleware{
		metrics: metrics,
		logger:  logger,
	}
}

// HTTPMetrics 按路由模板记录请求数、耗时与收发字节数
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 未匹配路由归到同一标签，限制标签基数
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(status),
			time.Since(start),
			max(c.Request.ContentLength, 0),
			int64(max(c.Writer.Size(), 0)),
		)
		if status >= http.StatusInternalServerError {
			mm.metrics.RecordError("http_error", "http")
		}
	}
}

// PanicRecovery 捕获处理器 panic，计数并返回统一的 500 响应
func (mm *MonitoringMiddleware) PanicRecovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		mm.metrics.RecordPanic()
		mm.logger.Error("handler panic",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Stack("stack"),
		)

		c.Set(KeyErrorCode, "internal")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"msg":     "服务器内部错误，请稍后重试",
			"errCode": "internal",
		})
	})
}

// BusinessMetrics 业务指标中间件，根据路由与处理器写入的上下文记录业务指标
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodPost {
			return
		}
		status := c.Writer.Status()

		switch c.FullPath() {
		case "/v1/users":
			if status == http.StatusCreated {
				mm.metrics.RecordUserRegistered()
			}
		case "/v1/messages":
			if status == http.StatusCreated {
				mm.metrics.RecordMessageSent(c.GetInt(KeyRecipientCount))
				return
			}
			if code := c.GetString(KeyErrorCode); code != "" {
				mm.metrics.RecordSendFailure(code)
			}
		case "/v1/deliveries/:id/read":
			if transition := c.GetString(KeyReadTransition); transition != "" {
				mm.metrics.RecordDeliveryRead(transition)
			}
		}
	}
}
