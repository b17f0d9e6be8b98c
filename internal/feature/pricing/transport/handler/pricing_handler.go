package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/transport/http/dto"
	"price_optimizer/internal/feature/pricing/usecase"
)

const (
	defaultDecisionLimit = 20
	maxDecisionLimit     = 100
)

// PricingUsecase は価格決定を実行します。
// インターフェースは提供側(usecase)ではなく利用側(handler)で定義します。
type PricingUsecase interface {
	OptimizeOne(ctx context.Context, productID int64) (entity.Outcome, error)
	Preview(ctx context.Context, productID int64) (entity.Outcome, error)
	OptimizeBatch(ctx context.Context) (entity.BatchResult, error)
	OptimizeProducts(ctx context.Context, ids []int64) entity.BatchResult
	RefreshCompetitors(ctx context.Context) (usecase.RefreshResult, error)
	History(n int) []entity.PriceDecision
}

// DecisionLog は保存済みの決定監査を読み出します。
type DecisionLog interface {
	ListByProduct(ctx context.Context, productID int64, limit int) ([]entity.PriceDecision, error)
}

// EventRecorder はストアフロントイベント1件を反映します。
type EventRecorder interface {
	Record(ctx context.Context, ev entity.ProductEvent) error
}

// PricingHandler は最適化、監査、イベントのエンドポイントを提供します。
type PricingHandler struct {
	pricing   PricingUsecase
	decisions DecisionLog
	events    EventRecorder
}

// NewPricingHandler は PricingHandler を生成します。
func NewPricingHandler(pricing PricingUsecase, decisions DecisionLog, events EventRecorder) *PricingHandler {
	return &PricingHandler{pricing: pricing, decisions: decisions, events: events}
}

// Optimize は1商品の決定を実行して適用します。
//
// POST /products/:id/optimize
func (h *PricingHandler) Optimize(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	out, err := h.pricing.OptimizeOne(c.Request.Context(), id)
	if err != nil {
		slog.Warn("optimization failed", "product_id", id, "error", err)
		c.JSON(statusFor(err), dto.NewOutcomeResponse(out))
		return
	}
	c.JSON(http.StatusOK, dto.NewOutcomeResponse(out))
}

// Analysis は何も書き込まずに決定をプレビューします。
//
// GET /products/:id/analysis
func (h *PricingHandler) Analysis(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	out, err := h.pricing.Preview(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), dto.NewOutcomeResponse(out))
		return
	}
	c.JSON(http.StatusOK, dto.NewOutcomeResponse(out))
}

// Batch は対象期限に達した全商品、または指定された product_ids に対してバッチを1サイクル実行します。
//
// POST /optimize/batch
func (h *PricingHandler) Batch(c *gin.Context) {
	var req dto.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}

	if len(req.ProductIDs) > 0 {
		res := h.pricing.OptimizeProducts(c.Request.Context(), req.ProductIDs)
		c.JSON(http.StatusOK, dto.NewBatchResponse(res))
		return
	}
	res, err := h.pricing.OptimizeBatch(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBatchResponse(res))
}

// RefreshCompetitors は有効な全商品の競合価格を再取得します。
//
// POST /competitors/refresh
func (h *PricingHandler) RefreshCompetitors(c *gin.Context) {
	res, err := h.pricing.RefreshCompetitors(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RefreshResponse{
		Products:  res.Products,
		Refreshed: res.Refreshed,
		Failed:    res.Failed,
		Errors:    res.Errors,
	})
}

// RecentDecisions はメモリ上の決定履歴を返します。
//
// GET /decisions?limit=20
func (h *PricingHandler) RecentDecisions(c *gin.Context) {
	n := limit(c, defaultDecisionLimit, maxDecisionLimit)
	c.JSON(http.StatusOK, dto.DecisionsResponse{Decisions: nonNil(h.pricing.History(n))})
}

// ProductDecisions は1商品の保存済み決定を返します。
//
// GET /products/:id/decisions?limit=20
func (h *PricingHandler) ProductDecisions(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	ds, err := h.decisions.ListByProduct(c.Request.Context(), id, limit(c, defaultDecisionLimit, maxDecisionLimit))
	if err != nil {
		slog.Error("failed to list decisions", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to list decisions"})
		return
	}
	c.JSON(http.StatusOK, dto.DecisionsResponse{Decisions: nonNil(ds)})
}

// RecordEvent はストアフロントイベント1件を取り込みます。
//
// POST /events
func (h *PricingHandler) RecordEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("event validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}
	if err := h.events.Record(c.Request.Context(), req.ToEntity()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.MessageResponse{Message: "ok"})
}

func nonNil(ds []entity.PriceDecision) []entity.PriceDecision {
	if ds == nil {
		return []entity.PriceDecision{}
	}
	return ds
}
