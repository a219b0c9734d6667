package payroll

import (
	"context"

	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

// Repository は給与明細の永続化の抽象です。明細は追記のみで更新しません。
type Repository interface {
	CreatePayItem(ctx context.Context, item *PayItem) (*PayItem, error)
	ListPayItems(ctx context.Context, filter ListPayItemsFilter) ([]*PayItem, error)
}

// ShiftReader は計算に必要なシフトのスナップショットを読み出します。
type ShiftReader interface {
	FindShift(ctx context.Context, id string) (*shift.Shift, error)
}

// ListPayItemsFilter は明細一覧取得用フィルタです。
type ListPayItemsFilter struct {
	OperatorID string
	PeriodKey  string
}
