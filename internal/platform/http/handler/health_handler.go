// Package handler はプラットフォーム共通の HTTP エンドポイントを提供します。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check は依存先1つを確認します。nil なら正常です。
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler は /healthz を提供します。
type HealthHandler struct {
	checks  []Check
	timeout time.Duration
}

// NewHealthHandler は GET のたびにチェックを実行する HealthHandler を生成します。
func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Health は HEAD に 200、OPTIONS に 204 をチェックなしで返します。
// GET では全チェックを実行し、1つでも失敗すれば 503 を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
		return
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Probe(ctx); err != nil {
			results[chk.Name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "ok"
	}

	body := gin.H{"status": status}
	if len(results) > 0 {
		body["checks"] = results
	}
	c.JSON(code, body)
}
