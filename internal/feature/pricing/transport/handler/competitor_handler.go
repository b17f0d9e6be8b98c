package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/domain/rules"
	"price_optimizer/internal/feature/pricing/transport/http/dto"
)

// CompetitorUsecase は競合ソースとキャッシュ済み観測値を管理します。
type CompetitorUsecase interface {
	Get(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error)
	Refresh(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error)
	Sources(ctx context.Context, productID int64) ([]string, error)
	AddSource(ctx context.Context, productID int64, url string) error
	RemoveSource(ctx context.Context, productID int64, url string) error
}

// ProductReader は現在価格を得るために商品を読み込みます。
type ProductReader interface {
	FindByID(ctx context.Context, id int64) (entity.Product, error)
}

// CompetitorHandler は /products/:id/competitors を提供します。
type CompetitorHandler struct {
	competitors CompetitorUsecase
	products    ProductReader
}

// NewCompetitorHandler は CompetitorHandler を生成します。
func NewCompetitorHandler(competitors CompetitorUsecase, products ProductReader) *CompetitorHandler {
	return &CompetitorHandler{competitors: competitors, products: products}
}

// List はソース、キャッシュ済み観測値、現在価格に対する分析を返します。
//
// GET /products/:id/competitors
func (h *CompetitorHandler) List(c *gin.Context) {
	h.respond(c, false)
}

// Refresh は1商品の全ソースを再取得します。
//
// POST /products/:id/competitors/refresh
func (h *CompetitorHandler) Refresh(c *gin.Context) {
	h.respond(c, true)
}

func (h *CompetitorHandler) respond(c *gin.Context, refresh bool) {
	id, ok := productID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.products.FindByID(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	sources, err := h.competitors.Sources(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	load := h.competitors.Get
	if refresh {
		load = h.competitors.Refresh
	}
	obs, err := load(ctx, id)
	if err != nil {
		slog.Error("failed to load competitor prices", "product_id", id, "error", err)
		writeError(c, err)
		return
	}
	if obs == nil {
		obs = []entity.CompetitorObservation{}
	}
	if sources == nil {
		sources = []string{}
	}

	c.JSON(http.StatusOK, dto.CompetitorsResponse{
		ProductID:    id,
		CurrentPrice: p.Price,
		Sources:      sources,
		Observations: obs,
		Analysis:     dto.NewCompetitorAnalysis(rules.AnalyzeCompetitors(p.Price, obs)),
	})
}

// Add は競合 URL の追跡を開始します。
//
// POST /products/:id/competitors
func (h *CompetitorHandler) Add(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req dto.CompetitorSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}
	if _, err := h.products.FindByID(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	if err := h.competitors.AddSource(c.Request.Context(), id, req.URL); err != nil {
		writeError(c, err)
		return
	}
	slog.Info("competitor source added", "product_id", id, "url", req.URL)
	c.JSON(http.StatusCreated, dto.MessageResponse{Message: "ok"})
}

// Remove は競合 URL の追跡を終了します。
//
// DELETE /products/:id/competitors?url=...
func (h *CompetitorHandler) Remove(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "url is required"})
		return
	}
	if err := h.competitors.RemoveSource(c.Request.Context(), id, url); err != nil {
		writeError(c, err)
		return
	}
	slog.Info("competitor source removed", "product_id", id, "url", url)
	c.Status(http.StatusNoContent)
}
