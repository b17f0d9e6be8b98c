package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pricinghandler "price_optimizer/internal/feature/pricing/transport/handler"
	"price_optimizer/internal/platform/http/handler"
)

// NewRouter はエンジンの全ルートを登録します。
func NewRouter(pricing *pricinghandler.PricingHandler, competitors *pricinghandler.CompetitorHandler,
	health *handler.HealthHandler, metrics http.Handler) *gin.Engine {
	r := gin.Default()

	// 導通確認用
	r.GET("/healthz", health.Health)
	r.HEAD("/healthz", health.Health)
	r.OPTIONS("/healthz", health.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	r.POST("/optimize/batch", pricing.Batch)
	r.POST("/competitors/refresh", pricing.RefreshCompetitors)
	r.GET("/decisions", pricing.RecentDecisions)
	r.POST("/events", pricing.RecordEvent)

	products := r.Group("/products/:id")
	{
		products.POST("/optimize", pricing.Optimize)
		products.GET("/analysis", pricing.Analysis)
		products.GET("/decisions", pricing.ProductDecisions)

		products.GET("/competitors", competitors.List)
		products.POST("/competitors", competitors.Add)
		products.DELETE("/competitors", competitors.Remove)
		products.POST("/competitors/refresh", competitors.Refresh)
	}

	return r
}
