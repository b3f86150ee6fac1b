package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit 未配置 server.body_limit 时的请求体上限
const DefaultBodyLimit int64 = 1 << 20

// ErrCodeBodyTooLarge 请求体超限时返回的 errCode
const ErrCodeBodyTooLarge = "body_too_large"

// BodySizeLimit 限制请求体大小。
// 声明的 Content-Length 超限时立即返回 413；
// 分块上传由 MaxBytesReader 在读取时截断，交给处理器报告 413。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}
	limit := strconv.FormatInt(maxBytes, 10)

	return func(c *gin.Context) {
		c.Header("X-Max-Body-Size", limit)

		if c.Request.ContentLength > maxBytes {
			c.Set(KeyErrorCode, ErrCodeBodyTooLarge)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"code":    http.StatusRequestEntityTooLarge,
				"msg":     fmt.Sprintf("请求体不能超过 %d 字节", maxBytes),
				"errCode": ErrCodeBodyTooLarge,
			})
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
