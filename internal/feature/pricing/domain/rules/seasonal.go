package rules

import (
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// HolidaySet は暦日の集合です。各エントリは完全な日付 ("2006-01-02") か
// 毎年繰り返す月日 ("01-02") のどちらかです。
type HolidaySet map[string]struct{}

// NewHolidaySet は設定文字列から HolidaySet を作成します。
func NewHolidaySet(days []string) HolidaySet {
	h := make(HolidaySet, len(days))
	for _, d := range days {
		h[d] = struct{}{}
	}
	return h
}

// Contains は t が設定された祝日に当たるかを返します。
func (h HolidaySet) Contains(t time.Time) bool {
	if len(h) == 0 {
		return false
	}
	if _, ok := h[t.Format("2006-01-02")]; ok {
		return true
	}
	_, ok := h[t.Format("01-02")]
	return ok
}

// SeasonOf は月を季節に分けます。3-5月は春、6-8月は夏、9-11月は秋、それ以外は冬です。
func SeasonOf(m time.Month) entity.Season {
	switch {
	case m >= time.March && m <= time.May:
		return entity.SeasonSpring
	case m >= time.June && m <= time.August:
		return entity.SeasonSummer
	case m >= time.September && m <= time.November:
		return entity.SeasonFall
	default:
		return entity.SeasonWinter
	}
}

// SeasonalFactorsAt は t 自身のロケーションで暦のフラグを導出します。
func SeasonalFactorsAt(t time.Time, holidays HolidaySet) entity.SeasonalFactors {
	wd := t.Weekday()
	return entity.SeasonalFactors{
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
		IsHoliday: holidays.Contains(t),
		Season:    SeasonOf(t.Month()),
		Hour:      t.Hour(),
	}
}
