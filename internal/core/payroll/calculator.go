package payroll

import (
	"math/bits"
	"time"

	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

const (
	microsPerMinute = int64(time.Minute / time.Microsecond)
	microsPerHour   = int64(time.Hour / time.Microsecond)
	periodKeyLayout = "2006-01"
	shiftDateLayout = "2006-01-02"
)

// Calculate は勤怠ログと時給から給与明細を組み立てます。
// 最初の CHECK_IN と最初の CHECK_OUT のどちらかが無ければ false を返します。
// ID と CreatedAt は呼び出し側が設定します。
func Calculate(sh *shift.Shift, rate Rate) (*PayItem, bool) {
	checkIn := sh.FirstEvent(shift.EventCheckIn)
	checkOut := sh.FirstEvent(shift.EventCheckOut)
	if checkIn == nil || checkOut == nil {
		return nil, false
	}

	grossMicros := checkOut.Timestamp.Sub(checkIn.Timestamp).Microseconds()
	breakMicros := int64(sh.UnpaidBreakMinutes) * microsPerMinute

	// 休憩は実測ではなくシフト作成時の固定控除
	payableMicros := grossMicros - breakMicros
	if payableMicros < 0 {
		payableMicros = 0
	}

	totalCents := floorPay(payableMicros, rate.Cents)
	periodKey := PeriodKey(sh.Date)

	item := &PayItem{
		ShiftID:        sh.ID,
		PayableMinutes: payableMicros / microsPerMinute,
		RateCents:      rate.Cents,
		TotalCents:     totalCents,
		PeriodKey:      periodKey,
		Snapshot: CalcSnapshot{
			Method:             MethodStandard,
			GrossMinutes:       float64(grossMicros) / float64(microsPerMinute),
			UnpaidBreakMinutes: sh.UnpaidBreakMinutes,
			PayableMinutes:     float64(payableMicros) / float64(microsPerMinute),
			PeriodKey:          periodKey,
			ShiftDate:          sh.Date.Format(shiftDateLayout),
			CheckInAt:          checkIn.Timestamp.UTC(),
			CheckOutAt:         checkOut.Timestamp.UTC(),
			RateCents:          rate.Cents,
			RateSource:         rate.Source,
			TotalCents:         totalCents,
		},
	}
	if primary := sh.PrimaryAssignment(); primary != nil {
		item.OperatorID = primary.OperatorID
	}
	return item, true
}

// PeriodKey はシフトの暦日から YYYY-MM を返します。
func PeriodKey(date time.Time) string {
	return date.Format(periodKeyLayout)
}

// floorPay は floor(payableMinutes * rateCents / 60) をマイクロ秒単位の整数演算で求めます。端数は切り捨てです。
func floorPay(payableMicros, rateCents int64) int64 {
	if payableMicros <= 0 || rateCents <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(payableMicros), uint64(rateCents))
	q, _ := bits.Div64(hi, lo, uint64(microsPerHour))
	return int64(q)
}
