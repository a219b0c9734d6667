// Package confirmation は翌営業日のシフトについて出勤確認依頼を組み立て、毎日決まった現地時刻に送り出します。
package confirmation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

const dayLayout = "2006-01-02"

// Request は外部のメッセージ配信に渡す出勤確認依頼です。
type Request struct {
	ShiftID      string
	AssignmentID string
	OperatorID   string
	OperatorName string
	Phone        string
	ChatID       int64
	ShopName     string
	StartAt      time.Time
	Text         string
}

// ShiftLister は指定日のシフトを読み出します。
type ShiftLister interface {
	ListShifts(ctx context.Context, filter shift.ListShiftsFilter) ([]*shift.Shift, error)
}

// Settings は確認依頼の発火時刻と対象日の設定です。
type Settings struct {
	Hour          int
	Minute        int
	Location      *time.Location
	LookaheadDays int
}

// Validate は設定値を検証します。
func (s Settings) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return ErrInvalidHour
	}
	if s.Minute < 0 || s.Minute > 59 {
		return ErrInvalidMinute
	}
	if s.Location == nil {
		return ErrInvalidLocation
	}
	if s.LookaheadDays < 1 {
		return ErrInvalidLookahead
	}
	return nil
}

// Sweeper は確認依頼の対象を決定します。配信は行いません。
type Sweeper struct {
	shifts   ShiftLister
	settings Settings
	logger   *zap.Logger
	group    singleflight.Group
}

// NewSweeper は Sweeper を生成します。
func NewSweeper(shifts ShiftLister, settings Settings, logger *zap.Logger) (*Sweeper, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{shifts: shifts, settings: settings, logger: logger}, nil
}

// Settings は設定を返します。
func (s *Sweeper) Settings() Settings {
	return s.settings
}

// TargetDay は asOf の現地日付に先読み日数を足した暦日を返します。
func (s *Sweeper) TargetDay(asOf time.Time) time.Time {
	local := asOf.In(s.settings.Location)
	return time.Date(local.Year(), local.Month(), local.Day()+s.settings.LookaheadDays, 0, 0, 0, 0, time.UTC)
}

// Sweep は対象日のシフトのうち PENDING のアサインごとに確認依頼を返します。
// CONFIRMED と DECLINED は再依頼しません。同じ日の同時実行は一回にまとめます。
func (s *Sweeper) Sweep(ctx context.Context, asOf time.Time) ([]Request, error) {
	if asOf.IsZero() {
		return nil, ErrInvalidAsOf
	}

	day := s.TargetDay(asOf)
	key := day.Format(dayLayout)

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.collect(ctx, day)
	})
	if err != nil {
		return nil, err
	}

	requests := v.([]Request)
	s.logger.Info("confirmation sweep computed",
		zap.String("day", key),
		zap.Int("requests", len(requests)),
		zap.Bool("shared", shared),
	)

	out := make([]Request, len(requests))
	copy(out, requests)
	return out, nil
}

func (s *Sweeper) collect(ctx context.Context, day time.Time) ([]Request, error) {
	shifts, err := s.shifts.ListShifts(ctx, shift.ListShiftsFilter{
		From:     day,
		To:       day,
		Statuses: []shift.Status{shift.StatusPlanned, shift.StatusInProgress},
	})
	if err != nil {
		return nil, fmt.Errorf("confirmation: list shifts for %s: %w", day.Format(dayLayout), err)
	}

	sort.SliceStable(shifts, func(i, j int) bool {
		return shifts[i].StartAt.Before(shifts[j].StartAt)
	})

	requests := make([]Request, 0, len(shifts))
	for _, sh := range shifts {
		if sh.Status.IsTerminal() || !sh.IsScheduledOn(day) {
			continue
		}
		for _, a := range sh.Assignments {
			if a == nil || a.Confirmation != shift.ConfirmationPending {
				continue
			}
			requests = append(requests, s.buildRequest(sh, a))
		}
	}
	return requests, nil
}

func (s *Sweeper) buildRequest(sh *shift.Shift, a *shift.Assignment) Request {
	req := Request{
		ShiftID:      sh.ID,
		AssignmentID: a.ID,
		OperatorID:   a.OperatorID,
		StartAt:      sh.StartAt,
	}
	if a.Operator != nil {
		req.OperatorName = a.Operator.FullName
		req.Phone = a.Operator.Phone
		req.ChatID = a.Operator.TelegramChatID
	}
	if sh.Shop != nil {
		req.ShopName = sh.Shop.Name
	}
	req.Text = renderText(req, s.settings.Location)
	return req
}

func renderText(req Request, loc *time.Location) string {
	start := req.StartAt.In(loc)
	name := req.OperatorName
	if name == "" {
		name = "operatore"
	}
	shop := req.ShopName
	if shop == "" {
		shop = "il punto vendita"
	}
	return fmt.Sprintf("Ciao %s, confermi il turno del %s alle %s presso %s? Rispondi OK per confermare o NO per rifiutare.",
		name, start.Format("02/01"), start.Format("15:04"), shop)
}
