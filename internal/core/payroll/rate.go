package payroll

import "github.com/ogurasousui/guard-shifts/internal/core/shift"

// Rate は解決済みの時給です。
type Rate struct {
	Cents  int64
	Source RateSource
}

// RateResolver は警備員 → 店舗 → 全体既定値の順で時給を決定します。
type RateResolver struct {
	fallbackCents int64
}

// NewRateResolver は RateResolver を生成します。既定時給が未設定なら起動時の設定エラーです。
func NewRateResolver(fallbackCents int64) (*RateResolver, error) {
	if fallbackCents <= 0 {
		return nil, ErrFallbackRateNotConfigured
	}
	return &RateResolver{fallbackCents: fallbackCents}, nil
}

// Resolve はシフトの主担当者と店舗から時給を解決します。0 は未設定として扱います。
func (r *RateResolver) Resolve(sh *shift.Shift) Rate {
	if primary := sh.PrimaryAssignment(); primary != nil && primary.Operator != nil {
		if rate := primary.Operator.HourlyRateCents; rate != nil && *rate > 0 {
			return Rate{Cents: *rate, Source: RateSourceOperator}
		}
	}
	if sh.Shop != nil {
		if rate := sh.Shop.DefaultHourlyRateCents; rate != nil && *rate > 0 {
			return Rate{Cents: *rate, Source: RateSourceShop}
		}
	}
	return Rate{Cents: r.fallbackCents, Source: RateSourceFallback}
}
