package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Pinger 能够报告自身连接状态的依赖（存储、缓存等）
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health  healthcheck.Handler
	store   Pinger
	logger  *zap.Logger
	timeout time.Duration
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store Pinger, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health:  healthcheck.NewHandler(),
		store:   store,
		logger:  logger,
		timeout: 2 * time.Second,
	}

	hc.addChecks()

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	// 存活检查只关心进程本身
	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))

	// 就绪检查：存储不可用时不接流量
	hc.health.AddReadinessCheck("storage", healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), hc.timeout)
		defer cancel()
		if err := hc.store.Health(ctx); err != nil {
			hc.logger.Warn("storage health check failed", zap.Error(err))
			return err
		}
		return nil
	}, hc.timeout))
}

// Handler 返回完整的健康检查处理器（存活 + 就绪）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活检查
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// CheckHealth 执行一次存储检查，返回各组件状态
func (hc *HealthChecker) CheckHealth(ctx context.Context) map[string]string {
	results := make(map[string]string)

	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()
	if err := hc.store.Health(ctx); err != nil {
		results["storage"] = "ERROR: " + err.Error()
	} else {
		results["storage"] = "OK"
	}

	results["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return results
}
