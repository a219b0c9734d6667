package shift

import (
	"context"
	"fmt"
	"math"
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

// UseCase はシフト勤怠ユースケースの公開インターフェースです。
type UseCase interface {
	RecordAttendance(ctx context.Context, in RecordAttendanceInput) (*AttendanceEvent, error)
	CancelShift(ctx context.Context, id string) (*Shift, error)
	CompleteShift(ctx context.Context, id string) (*Shift, error)
	GetShift(ctx context.Context, id string) (*Shift, error)
	SetConfirmation(ctx context.Context, in SetConfirmationInput) (*Assignment, error)
}

// Service は勤怠記録とシフトのライフサイクルを扱います。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	locks  *KeyedMutex
	logger *zap.Logger
	newID  func() string
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, logger *zap.Logger) *Service {
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
		repo:   repo,
		clock:  clock,
		tx:     tx,
		locks:  NewKeyedMutex(),
		logger: logger,
		newID:  uuid.NewString,
	}
}

// RecordAttendanceInput は勤怠記録時の入力です。
type RecordAttendanceInput struct {
	ShiftID     string
	OperatorID  string
	EventType   EventType
	Source      Source
	Timestamp   time.Time
	Coordinates *Coordinates
}

// RecordAttendance は勤怠イベントをログに追記し、最初の CHECK_IN でシフトを IN_PROGRESS にします。
func (s *Service) RecordAttendance(ctx context.Context, in RecordAttendanceInput) (*AttendanceEvent, error) {
	shiftID, err := normalizeID(in.ShiftID)
	if err != nil {
		return nil, fmt.Errorf("shift_id: %w", err)
	}
	operatorID, err := normalizeID(in.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("operator_id: %w", err)
	}
	if !isValidEventType(in.EventType) {
		return nil, ErrInvalidEventType
	}
	if !isValidSource(in.Source) {
		return nil, ErrInvalidSource
	}
	if in.Timestamp.IsZero() {
		return nil, ErrInvalidTimestamp
	}
	if err := validateCoordinates(in.Coordinates); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(shiftID)
	defer unlock()

	var (
		recorded   *AttendanceEvent
		transition bool
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockShift(txCtx, shiftID); err != nil {
			return err
		}

		sh, err := s.repo.FindShift(txCtx, shiftID)
		if err != nil {
			return err
		}
		op, err := s.repo.FindOperator(txCtx, operatorID)
		if err != nil {
			return err
		}

		if sh.Status.IsTerminal() {
			return fmt.Errorf("%w: shift %s is %s", ErrInvalidState, sh.ID, sh.Status)
		}

		assignment := sh.AssignmentFor(op.ID)
		if assignment == nil || assignment.Confirmation == ConfirmationDeclined {
			return fmt.Errorf("%w: operator %s on shift %s", ErrUnassignedOperator, op.ID, sh.ID)
		}

		firstCheckIn := in.EventType == EventCheckIn && sh.FirstEvent(EventCheckIn) == nil

		now := s.clock.Now()
		event := &AttendanceEvent{
			ID:          s.newID(),
			ShiftID:     sh.ID,
			OperatorID:  op.ID,
			EventType:   in.EventType,
			Source:      in.Source,
			Timestamp:   in.Timestamp.UTC(),
			Coordinates: cloneCoordinates(in.Coordinates),
			CreatedAt:   now,
		}

		created, err := s.repo.AppendAttendanceEvent(txCtx, event)
		if err != nil {
			return err
		}

		if firstCheckIn && sh.Status == StatusPlanned {
			next, err := Transition(sh.Status, TriggerFirstCheckIn)
			if err != nil {
				return err
			}
			if err := s.repo.UpdateShiftStatus(txCtx, sh.ID, next, now); err != nil {
				return err
			}
			transition = true
		}

		recorded = created
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("attendance recorded",
		zap.String("shift_id", recorded.ShiftID),
		zap.String("operator_id", recorded.OperatorID),
		zap.String("event_type", string(recorded.EventType)),
		zap.String("source", string(recorded.Source)),
		zap.Time("timestamp", recorded.Timestamp),
		zap.Bool("started_shift", transition),
	)

	return recorded, nil
}

// CancelShift は管理操作としてシフトを CANCELLED にします。
func (s *Service) CancelShift(ctx context.Context, id string) (*Shift, error) {
	return s.applyTrigger(ctx, id, TriggerCancel)
}

// CompleteShift は管理操作としてシフトを COMPLETED にします。
func (s *Service) CompleteShift(ctx context.Context, id string) (*Shift, error) {
	return s.applyTrigger(ctx, id, TriggerComplete)
}

func (s *Service) applyTrigger(ctx context.Context, id string, trigger Trigger) (*Shift, error) {
	shiftID, err := normalizeID(id)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	unlock := s.locks.Lock(shiftID)
	defer unlock()

	var updated *Shift
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockShift(txCtx, shiftID); err != nil {
			return err
		}

		sh, err := s.repo.FindShift(txCtx, shiftID)
		if err != nil {
			return err
		}

		next, err := Transition(sh.Status, trigger)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.repo.UpdateShiftStatus(txCtx, sh.ID, next, now); err != nil {
			return err
		}

		sh.Status = next
		sh.UpdatedAt = now
		updated = sh
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("shift status changed",
		zap.String("shift_id", updated.ID),
		zap.String("trigger", string(trigger)),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// GetShift はシフトを取得します。
func (s *Service) GetShift(ctx context.Context, id string) (*Shift, error) {
	shiftID, err := normalizeID(id)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var found *Shift
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		sh, err := s.repo.FindShift(txCtx, shiftID)
		if err != nil {
			return err
		}
		found = sh
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// SetConfirmationInput は出勤確認の回答です。
type SetConfirmationInput struct {
	ShiftID    string
	OperatorID string
	Status     ConfirmationStatus
}

// SetConfirmation はアサインの出勤確認状態を更新します。終了済みのシフトには回答できません。
func (s *Service) SetConfirmation(ctx context.Context, in SetConfirmationInput) (*Assignment, error) {
	shiftID, err := normalizeID(in.ShiftID)
	if err != nil {
		return nil, fmt.Errorf("shift_id: %w", err)
	}
	operatorID, err := normalizeID(in.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("operator_id: %w", err)
	}
	if !isValidConfirmation(in.Status) {
		return nil, ErrInvalidConfirmationStatus
	}

	unlock := s.locks.Lock(shiftID)
	defer unlock()

	var updated *Assignment
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		sh, err := s.repo.FindShift(txCtx, shiftID)
		if err != nil {
			return err
		}
		if sh.Status.IsTerminal() {
			return fmt.Errorf("%w: shift %s is %s", ErrInvalidState, sh.ID, sh.Status)
		}

		assignment := sh.AssignmentFor(operatorID)
		if assignment == nil {
			return fmt.Errorf("%w: operator %s on shift %s", ErrUnassignedOperator, operatorID, sh.ID)
		}

		if err := s.repo.SetAssignmentConfirmation(txCtx, assignment.ID, in.Status); err != nil {
			return err
		}

		assignment.Confirmation = in.Status
		updated = assignment
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("assignment confirmation updated",
		zap.String("shift_id", updated.ShiftID),
		zap.String("operator_id", updated.OperatorID),
		zap.String("confirmation", string(updated.Confirmation)),
	)

	return updated, nil
}

func normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidID
	}
	return trimmed, nil
}

func validateCoordinates(c *Coordinates) error {
	if c == nil {
		return nil
	}
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return ErrInvalidCoordinates
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

func cloneCoordinates(c *Coordinates) *Coordinates {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
