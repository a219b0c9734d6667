package postgres

import (
	"context"
	"time"

	"github.com/ogurasousui/guard-shifts/internal/core/confirmation"
	pgdb "github.com/ogurasousui/guard-shifts/internal/platform/db/postgres"
)

// ConfirmationSweepRepository は出勤確認の発火記録を保持します。
type ConfirmationSweepRepository struct {
	pool pgdb.Queryer
}

var _ confirmation.SweepClaimer = (*ConfirmationSweepRepository)(nil)

// NewConfirmationSweepRepository は ConfirmationSweepRepository を生成します。
func NewConfirmationSweepRepository(pool pgdb.Queryer) *ConfirmationSweepRepository {
	return &ConfirmationSweepRepository{pool: pool}
}

// ClaimSweep は day の発火記録を作成し、既に存在した場合は false を返します。
func (r *ConfirmationSweepRepository) ClaimSweep(ctx context.Context, day time.Time, firedAt time.Time) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        INSERT INTO confirmation_sweeps (sweep_day, fired_at)
        VALUES ($1, $2)
        ON CONFLICT (sweep_day) DO NOTHING
    `, day, firedAt)
	if err != nil {
		return false, translateShiftPgError(err)
	}
	return tag.RowsAffected() == 1, nil
}
