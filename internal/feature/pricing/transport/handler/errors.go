// Package handler は価格最適化機能の HTTP ハンドラを提供します。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/transport/http/dto"
	"price_optimizer/internal/feature/pricing/usecase"
)

// statusFor はドメインエラーを HTTP ステータスコードに対応付けます。
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPredictorFailure), errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrConstraintViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrUnknownEvent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), dto.ErrorResponse{Error: err.Error()})
}

// productID はパスパラメータ :id を解析し、不正なら 400 を返します。
func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid product id"})
		return 0, false
	}
	return id, true
}

// limit は ?limit= を読み取ります。未指定なら def を使い、ceiling で上限を設けます。
func limit(c *gin.Context, def, ceiling int) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, ceiling)
}
