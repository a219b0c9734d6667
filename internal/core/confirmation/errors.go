package confirmation

import "errors"

var (
	// ErrInvalidHour は発火時が 0 から 23 の範囲外の場合に返却されます。
	ErrInvalidHour = errors.New("confirmation: invalid trigger hour")
	// ErrInvalidMinute は発火分が 0 から 59 の範囲外の場合に返却されます。
	ErrInvalidMinute = errors.New("confirmation: invalid trigger minute")
	// ErrInvalidLocation はタイムゾーンが指定されていない場合に返却されます。
	ErrInvalidLocation = errors.New("confirmation: time zone is required")
	// ErrInvalidLookahead は先読み日数が 1 未満の場合に返却されます。
	ErrInvalidLookahead = errors.New("confirmation: lookahead must be at least one day")
	// ErrInvalidAsOf は基準時刻が指定されていない場合に返却されます。
	ErrInvalidAsOf = errors.New("confirmation: as-of instant is required")
	// ErrMissingChannelTarget は警備員に配信先が登録されていない場合に返却されます。
	ErrMissingChannelTarget = errors.New("confirmation: operator has no messaging address")
)
