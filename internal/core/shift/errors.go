package shift

import "errors"

var (
	// ErrInvalidID はIDが不正な場合に返却されます。
	ErrInvalidID = errors.New("shift: invalid id")
	// ErrInvalidEventType は勤怠イベント種別が不正な場合に返却されます。
	ErrInvalidEventType = errors.New("shift: invalid event type")
	// ErrInvalidSource は記録元が不正な場合に返却されます。
	ErrInvalidSource = errors.New("shift: invalid source")
	// ErrInvalidTimestamp は打刻時刻が指定されていない場合に返却されます。
	ErrInvalidTimestamp = errors.New("shift: invalid timestamp")
	// ErrInvalidCoordinates は緯度経度が範囲外の場合に返却されます。
	ErrInvalidCoordinates = errors.New("shift: invalid coordinates")
	// ErrInvalidConfirmationStatus は出勤確認状態が不正な場合に返却されます。
	ErrInvalidConfirmationStatus = errors.New("shift: invalid confirmation status")
	// ErrInvalidDate は日付の範囲が不正な場合に返却されます。
	ErrInvalidDate = errors.New("shift: invalid date")
	// ErrShiftNotFound はシフトが存在しない場合に返却されます。
	ErrShiftNotFound = errors.New("shift: shift not found")
	// ErrOperatorNotFound は警備員が存在しない場合に返却されます。
	ErrOperatorNotFound = errors.New("shift: operator not found")
	// ErrShopNotFound は店舗が存在しない場合に返却されます。
	ErrShopNotFound = errors.New("shift: shop not found")
	// ErrAssignmentNotFound はアサインが存在しない場合に返却されます。
	ErrAssignmentNotFound = errors.New("shift: assignment not found")
	// ErrInvalidState はシフトの状態が操作を許さない場合に返却されます。
	ErrInvalidState = errors.New("shift: invalid state")
	// ErrUnassignedOperator は警備員がシフトにアサインされていない場合に返却されます。
	ErrUnassignedOperator = errors.New("shift: operator is not assigned to shift")
)

// IsNotFound は参照先エンティティが存在しないエラーかを判定します。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrOperatorNotFound) ||
		errors.Is(err, ErrShopNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}
