package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// ValidatePolicy は満たしようのないマークアップ幅を拒否します。
func ValidatePolicy(p entity.OptimizationPolicy) error {
	if p.MinMarkupPct < 0 || p.MaxMarkupPct < 0 {
		return fmt.Errorf("%w: negative markup (min=%.2f, max=%.2f)", domain.ErrConstraintViolation, p.MinMarkupPct, p.MaxMarkupPct)
	}
	if p.MinMarkupPct > p.MaxMarkupPct {
		return fmt.Errorf("%w: min markup %.2f%% exceeds max markup %.2f%%", domain.ErrConstraintViolation, p.MinMarkupPct, p.MaxMarkupPct)
	}
	return nil
}

// MarkupBounds は cost×(1+min%) と cost×(1+max%) を返します。
func MarkupBounds(cost float64, p entity.OptimizationPolicy) (low, high float64) {
	l, h := markupBounds(cost, p)
	return l.InexactFloat64(), h.InexactFloat64()
}

func markupBounds(cost float64, p entity.OptimizationPolicy) (low, high decimal.Decimal) {
	c := decimal.NewFromFloat(cost)
	low = c.Mul(hundred.Add(decimal.NewFromFloat(p.MinMarkupPct))).Div(hundred)
	high = c.Mul(hundred.Add(decimal.NewFromFloat(p.MaxMarkupPct))).Div(hundred)
	return low, high
}

// ClampToMarkup は候補をポリシーのマークアップ幅に収め、precision で丸めます。
// 下限は切り上げ、上限は切り捨てるので、クランプ後の価格が幅を外れることはありません。
func ClampToMarkup(candidate, cost float64, p entity.OptimizationPolicy, precision int32) (float64, error) {
	if err := ValidatePolicy(p); err != nil {
		return 0, err
	}
	low, high := markupBounds(cost, p)
	return clampRounded(decimal.NewFromFloat(candidate), low, high, precision).InexactFloat64(), nil
}

// RoundPrice は precision 桁で四捨五入します (0から遠い方へ丸めます)。
func RoundPrice(v float64, precision int32) float64 {
	return decimal.NewFromFloat(v).Round(precision).InexactFloat64()
}

func clampRounded(v, low, high decimal.Decimal, precision int32) decimal.Decimal {
	r := v.Round(precision)
	lo := low.RoundCeil(precision)
	hi := high.RoundFloor(precision)
	if lo.GreaterThan(hi) {
		// 丸め1単位より狭い幅
		return decimal.Max(low, decimal.Min(v, high))
	}
	if r.LessThan(lo) {
		return lo
	}
	if r.GreaterThan(hi) {
		return hi
	}
	return r
}
