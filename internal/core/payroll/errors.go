package payroll

import "errors"

var (
	// ErrInvalidShiftID はシフトIDが不正な場合に返却されます。
	ErrInvalidShiftID = errors.New("payroll: invalid shift id")
	// ErrInvalidOperatorID は警備員IDが不正な場合に返却されます。
	ErrInvalidOperatorID = errors.New("payroll: invalid operator id")
	// ErrInvalidPeriodKey は集計期間が YYYY-MM 形式でない場合に返却されます。
	ErrInvalidPeriodKey = errors.New("payroll: invalid period key")
	// ErrNoPayee は支払先となる警備員がシフトにいない場合に返却されます。
	ErrNoPayee = errors.New("payroll: shift has no assigned operator")
	// ErrFallbackRateNotConfigured は既定時給が設定されていない場合に返却されます。
	ErrFallbackRateNotConfigured = errors.New("payroll: fallback hourly rate is not configured")
)
