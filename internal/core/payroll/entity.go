package payroll

import "time"

// MethodStandard は単一時給モデルによる計算方式です。
const MethodStandard = "standard"

// RateSource は採用した時給の出所です。
type RateSource string

const (
	RateSourceOperator RateSource = "operator"
	RateSourceShop     RateSource = "shop"
	RateSourceFallback RateSource = "fallback"
)

// PayItem は一度作成されると変更されない給与明細です。再計算は新しい PayItem を作ります。
type PayItem struct {
	ID             string
	ShiftID        string
	OperatorID     string
	PayableMinutes int64
	RateCents      int64
	TotalCents     int64
	PeriodKey      string
	Snapshot       CalcSnapshot
	CreatedAt      time.Time
}

// CalcSnapshot は計算に使ったすべての入力を保持する監査記録です。
// 元のシフトや警備員が後で変わっても、これだけで計算を再現できます。
type CalcSnapshot struct {
	Method             string     `json:"method"`
	GrossMinutes       float64    `json:"grossMinutes"`
	UnpaidBreakMinutes int        `json:"unpaidBreakMinutes"`
	PayableMinutes     float64    `json:"payableMinutes"`
	PeriodKey          string     `json:"periodKey"`
	ShiftDate          string     `json:"shiftDate"`
	CheckInAt          time.Time  `json:"checkInAt"`
	CheckOutAt         time.Time  `json:"checkOutAt"`
	RateCents          int64      `json:"rateCents"`
	RateSource         RateSource `json:"rateSource"`
	TotalCents         int64      `json:"totalCents"`
}

// Summary は警備員の期間別支給合計です。
type Summary struct {
	OperatorID string
	PeriodKey  string
	Items      []*PayItem
	TotalCents int64
}
