package shift

import (
	"context"
	"time"
)

// Repository はシフト関連エンティティの永続化の抽象です。
// FindShift は店舗・アサイン（警備員付き）・タイムスタンプ順の勤怠ログを含めて返します。
type Repository interface {
	FindShift(ctx context.Context, id string) (*Shift, error)
	FindOperator(ctx context.Context, id string) (*Operator, error)
	FindOperatorByPhone(ctx context.Context, phone string) (*Operator, error)
	FindShop(ctx context.Context, id string) (*Shop, error)
	AppendAttendanceEvent(ctx context.Context, event *AttendanceEvent) (*AttendanceEvent, error)
	UpdateShiftStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error
	SetAssignmentConfirmation(ctx context.Context, assignmentID string, status ConfirmationStatus) error
	ListShifts(ctx context.Context, filter ListShiftsFilter) ([]*Shift, error)
	// LockShift は現在のトランザクション内でシフト単位の排他ロックを取得します。
	LockShift(ctx context.Context, id string) error
}

// ListShiftsFilter はシフト一覧取得用フィルタです。日付は暦日として扱います。
type ListShiftsFilter struct {
	From       time.Time
	To         time.Time
	OperatorID string
	Statuses   []Status
}
