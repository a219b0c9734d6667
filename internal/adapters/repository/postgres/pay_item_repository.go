package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/guard-shifts/internal/core/payroll"
	pgdb "github.com/ogurasousui/guard-shifts/internal/platform/db/postgres"
)

const payItemColumns = `id, shift_id, operator_id, payable_minutes, rate_cents, total_cents, period_key, calc_snapshot, created_at`

// PayItemRepository は PostgreSQL を利用した給与明細の永続化の実装です。
type PayItemRepository struct {
	pool pgdb.Queryer
}

var _ payroll.Repository = (*PayItemRepository)(nil)

// NewPayItemRepository は PayItemRepository を生成します。
func NewPayItemRepository(pool pgdb.Queryer) *PayItemRepository {
	return &PayItemRepository{pool: pool}
}

// CreatePayItem は給与明細を追記します。計算スナップショットは jsonb として保存します。
func (r *PayItemRepository) CreatePayItem(ctx context.Context, item *payroll.PayItem) (*payroll.PayItem, error) {
	snapshot, err := json.Marshal(item.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode calc snapshot: %w", err)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO pay_items (`+payItemColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+payItemColumns+`
    `, item.ID, item.ShiftID, item.OperatorID, item.PayableMinutes, item.RateCents, item.TotalCents, item.PeriodKey, snapshot, item.CreatedAt)

	created, err := scanPayItem(row)
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	return created, nil
}

// ListPayItems は警備員と期間で明細を作成順に返します。
func (r *PayItemRepository) ListPayItems(ctx context.Context, filter payroll.ListPayItemsFilter) ([]*payroll.PayItem, error) {
	if !isUUID(filter.OperatorID) {
		return nil, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+payItemColumns+`
          FROM pay_items
         WHERE operator_id = $1 AND period_key = $2
         ORDER BY created_at, id
    `, filter.OperatorID, filter.PeriodKey)
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	defer rows.Close()

	var items []*payroll.PayItem
	for rows.Next() {
		item, err := scanPayItem(rows)
		if err != nil {
			return nil, translateShiftPgError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, translateShiftPgError(err)
	}
	return items, nil
}

func scanPayItem(row pgx.Row) (*payroll.PayItem, error) {
	var (
		item     payroll.PayItem
		snapshot []byte
	)
	if err := row.Scan(&item.ID, &item.ShiftID, &item.OperatorID, &item.PayableMinutes, &item.RateCents, &item.TotalCents,
		&item.PeriodKey, &snapshot, &item.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &item.Snapshot); err != nil {
		return nil, fmt.Errorf("postgres: decode calc snapshot: %w", err)
	}
	return &item, nil
}
