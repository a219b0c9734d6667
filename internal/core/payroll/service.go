package payroll

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

var periodKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// UseCase は給与計算ユースケースの公開インターフェースです。
type UseCase interface {
	CalculatePay(ctx context.Context, shiftID string) (*PayItem, error)
	PaySummary(ctx context.Context, operatorID, periodKey string) (*Summary, error)
}

// Service は勤怠から給与明細を算出して保存します。
type Service struct {
	shifts   ShiftReader
	repo     Repository
	resolver *RateResolver
	clock    Clock
	tx       TransactionManager
	logger   *zap.Logger
	newID    func() string
}

// NewService は Service を生成します。
func NewService(shifts ShiftReader, repo Repository, resolver *RateResolver, clock Clock, tx TransactionManager, logger *zap.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		shifts:   shifts,
		repo:     repo,
		resolver: resolver,
		clock:    clock,
		tx:       tx,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// CalculatePay はシフトの給与明細を計算して保存します。
// 勤怠が揃っていない場合はエラーではなく nil を返します。
func (s *Service) CalculatePay(ctx context.Context, shiftID string) (*PayItem, error) {
	id := strings.TrimSpace(shiftID)
	if id == "" {
		return nil, ErrInvalidShiftID
	}

	var created *PayItem
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		sh, err := s.shifts.FindShift(txCtx, id)
		if err != nil {
			return err
		}

		item, ok := Calculate(sh, s.resolver.Resolve(sh))
		if !ok {
			return nil
		}
		if item.OperatorID == "" {
			return fmt.Errorf("%w: %s", ErrNoPayee, sh.ID)
		}

		item.ID = s.newID()
		item.CreatedAt = s.clock.Now()

		result, err := s.repo.CreatePayItem(txCtx, item)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	if created == nil {
		s.logger.Debug("pay not computed, attendance incomplete", zap.String("shift_id", id))
		return nil, nil
	}

	s.logger.Info("pay item created",
		zap.String("pay_item_id", created.ID),
		zap.String("shift_id", created.ShiftID),
		zap.String("operator_id", created.OperatorID),
		zap.Int64("payable_minutes", created.PayableMinutes),
		zap.Int64("rate_cents", created.RateCents),
		zap.String("rate_source", string(created.Snapshot.RateSource)),
		zap.Int64("total_cents", created.TotalCents),
	)

	return created, nil
}

// PaySummary は警備員の期間内の明細と合計額を返します。
func (s *Service) PaySummary(ctx context.Context, operatorID, periodKey string) (*Summary, error) {
	opID := strings.TrimSpace(operatorID)
	if opID == "" {
		return nil, ErrInvalidOperatorID
	}
	key := strings.TrimSpace(periodKey)
	if !periodKeyPattern.MatchString(key) {
		return nil, ErrInvalidPeriodKey
	}

	var items []*PayItem
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListPayItems(txCtx, ListPayItemsFilter{OperatorID: opID, PeriodKey: key})
		if err != nil {
			return err
		}
		items = found
		return nil
	}); err != nil {
		return nil, err
	}

	summary := &Summary{OperatorID: opID, PeriodKey: key, Items: latestPerShift(items)}
	for _, item := range summary.Items {
		summary.TotalCents += item.TotalCents
	}
	return summary, nil
}

// latestPerShift は再計算で置き換えられた明細を除き、シフトごとに最新の明細だけを残します。
func latestPerShift(items []*PayItem) []*PayItem {
	latest := make(map[string]int, len(items))
	out := make([]*PayItem, 0, len(items))
	for _, item := range items {
		idx, seen := latest[item.ShiftID]
		if !seen {
			latest[item.ShiftID] = len(out)
			out = append(out, item)
			continue
		}
		if !item.CreatedAt.Before(out[idx].CreatedAt) {
			out[idx] = item
		}
	}
	return out
}
