// Package inbox はメッセージ経由の返信を解釈し、出勤確認の更新または勤怠記録に振り分けます。
package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ogurasousui/guard-shifts/internal/core/message"
	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

var (
	// ErrInvalidSender は送信者の電話番号もチャットIDもない場合に返却されます。
	ErrInvalidSender = errors.New("inbox: sender phone or chat is required")
	// ErrNoActiveShift はメッセージに対応するシフトが見つからない場合に返却されます。
	ErrNoActiveShift = errors.New("inbox: no matching shift for operator")
)

const (
	confirmationHorizonDays = 7
	replyUnrecognized       = "Messaggio non riconosciuto. Rispondi OK o NO, oppure IN, BREAK START, BREAK END, OUT."
	replyConfirmed          = "Grazie, turno confermato."
	replyDeclined           = "Ricevuto, turno rifiutato."
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Directory は警備員とシフトの参照を提供します。
type Directory interface {
	FindOperatorByPhone(ctx context.Context, phone string) (*shift.Operator, error)
	FindOperatorByChatID(ctx context.Context, chatID int64) (*shift.Operator, error)
	SetOperatorChatID(ctx context.Context, operatorID string, chatID int64) error
	ListShifts(ctx context.Context, filter shift.ListShiftsFilter) ([]*shift.Shift, error)
}

// ShiftCommands はシフトへの書き込み操作です。
type ShiftCommands interface {
	RecordAttendance(ctx context.Context, in shift.RecordAttendanceInput) (*shift.AttendanceEvent, error)
	SetConfirmation(ctx context.Context, in shift.SetConfirmationInput) (*shift.Assignment, error)
}

// InboundMessage はメッセージチャネルから届いた返信です。
// 送信者は SenderPhone、なければ ChatID で特定します。
type InboundMessage struct {
	SenderPhone string
	ChatID      int64
	Text        string
	ReceivedAt  time.Time
}

// Outcome は返信の処理結果です。Reply は送信者への返答文です。
type Outcome struct {
	Intent     message.Intent
	OperatorID string
	ShiftID    string
	Event      *shift.AttendanceEvent
	Assignment *shift.Assignment
	Reply      string
}

// Service は返信を処理します。
type Service struct {
	dir      Directory
	commands ShiftCommands
	clock    Clock
	loc      *time.Location
	logger   *zap.Logger
}

// NewService は Service を生成します。loc はシフトの暦日を判定するタイムゾーンです。
func NewService(dir Directory, commands ShiftCommands, clock Clock, loc *time.Location, logger *zap.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{dir: dir, commands: commands, clock: clock, loc: loc, logger: logger}
}

// Normalize は送信者を記録したうえでメッセージを分類します。失敗しません。
func (s *Service) Normalize(text, senderPhone string) message.Intent {
	intent := message.Normalize(text)
	s.logger.Debug("message normalized",
		zap.String("sender", senderPhone),
		zap.Stringer("kind", intent.Kind),
		zap.String("event_type", string(intent.EventType)),
	)
	return intent
}

// Handle は返信を分類し、対応するシフト操作を行います。
func (s *Service) Handle(ctx context.Context, msg InboundMessage) (*Outcome, error) {
	phone := normalizePhone(msg.SenderPhone)
	if phone == "" && msg.ChatID == 0 {
		return nil, ErrInvalidSender
	}
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.clock.Now()
	}

	intent := s.Normalize(msg.Text, senderLabel(phone, msg.ChatID))
	outcome := &Outcome{Intent: intent}
	if intent.Kind == message.KindUnrecognized {
		outcome.Reply = replyUnrecognized
		return outcome, nil
	}

	op, err := s.findSender(ctx, phone, msg.ChatID)
	if err != nil {
		return nil, err
	}
	outcome.OperatorID = op.ID

	switch intent.Kind {
	case message.KindConfirmation, message.KindDecline:
		return s.handleConfirmation(ctx, op, intent, receivedAt, outcome)
	case message.KindAttendance:
		return s.handleAttendance(ctx, op, intent, receivedAt, outcome)
	default:
		outcome.Reply = replyUnrecognized
		return outcome, nil
	}
}

// LinkChat は電話番号で特定した警備員にチャットを紐付けます。
func (s *Service) LinkChat(ctx context.Context, phone string, chatID int64) (*shift.Operator, error) {
	phone = normalizePhone(phone)
	if phone == "" || chatID == 0 {
		return nil, ErrInvalidSender
	}

	op, err := s.dir.FindOperatorByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if op.TelegramChatID != chatID {
		if err := s.dir.SetOperatorChatID(ctx, op.ID, chatID); err != nil {
			return nil, err
		}
		op.TelegramChatID = chatID
	}

	s.logger.Info("operator chat linked", zap.String("operator_id", op.ID), zap.Int64("chat_id", chatID))
	return op, nil
}

func (s *Service) findSender(ctx context.Context, phone string, chatID int64) (*shift.Operator, error) {
	if phone != "" {
		return s.dir.FindOperatorByPhone(ctx, phone)
	}
	return s.dir.FindOperatorByChatID(ctx, chatID)
}

func (s *Service) handleConfirmation(ctx context.Context, op *shift.Operator, intent message.Intent, receivedAt time.Time, outcome *Outcome) (*Outcome, error) {
	today := s.localDay(receivedAt)
	shifts, err := s.dir.ListShifts(ctx, shift.ListShiftsFilter{
		From:       today,
		To:         today.AddDate(0, 0, confirmationHorizonDays),
		OperatorID: op.ID,
		Statuses:   []shift.Status{shift.StatusPlanned},
	})
	if err != nil {
		return nil, err
	}

	target := pickUpcoming(shifts, op.ID, receivedAt)
	if target == nil {
		return nil, fmt.Errorf("%w: operator %s", ErrNoActiveShift, op.ID)
	}

	status := shift.ConfirmationConfirmed
	reply := replyConfirmed
	if intent.Kind == message.KindDecline {
		status = shift.ConfirmationDeclined
		reply = replyDeclined
	}

	assignment, err := s.commands.SetConfirmation(ctx, shift.SetConfirmationInput{
		ShiftID:    target.ID,
		OperatorID: op.ID,
		Status:     status,
	})
	if err != nil {
		return nil, err
	}

	outcome.ShiftID = target.ID
	outcome.Assignment = assignment
	outcome.Reply = reply
	return outcome, nil
}

func (s *Service) handleAttendance(ctx context.Context, op *shift.Operator, intent message.Intent, receivedAt time.Time, outcome *Outcome) (*Outcome, error) {
	today := s.localDay(receivedAt)
	shifts, err := s.dir.ListShifts(ctx, shift.ListShiftsFilter{
		From:       today.AddDate(0, 0, -1),
		To:         today.AddDate(0, 0, 1),
		OperatorID: op.ID,
		Statuses:   []shift.Status{shift.StatusPlanned, shift.StatusInProgress},
	})
	if err != nil {
		return nil, err
	}

	target := pickCurrent(shifts, op.ID, intent.EventType, receivedAt)
	if target == nil {
		return nil, fmt.Errorf("%w: operator %s", ErrNoActiveShift, op.ID)
	}

	event, err := s.commands.RecordAttendance(ctx, shift.RecordAttendanceInput{
		ShiftID:     target.ID,
		OperatorID:  op.ID,
		EventType:   intent.EventType,
		Source:      shift.SourceMessaging,
		Timestamp:   receivedAt,
		Coordinates: intent.Coordinates,
	})
	if err != nil {
		return nil, err
	}

	outcome.ShiftID = target.ID
	outcome.Event = event
	outcome.Reply = fmt.Sprintf("Registrato %s alle %s.", event.EventType, event.Timestamp.In(s.loc).Format("15:04"))
	return outcome, nil
}

func senderLabel(phone string, chatID int64) string {
	if phone != "" {
		return phone
	}
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// normalizePhone は連絡先共有で届く番号を先頭 + 付きの形式に揃えます。
func normalizePhone(raw string) string {
	phone := strings.Join(strings.Fields(raw), "")
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}

func (s *Service) localDay(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// pickUpcoming は未回答のアサインを優先し、開始時刻が最も早いシフトを選びます。
func pickUpcoming(shifts []*shift.Shift, operatorID string, now time.Time) *shift.Shift {
	candidates := make([]*shift.Shift, 0, len(shifts))
	for _, sh := range shifts {
		if sh.Status.IsTerminal() || sh.AssignmentFor(operatorID) == nil {
			continue
		}
		if sh.EndAt.Before(now) {
			continue
		}
		candidates = append(candidates, sh)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		pi := candidates[i].AssignmentFor(operatorID).Confirmation == shift.ConfirmationPending
		pj := candidates[j].AssignmentFor(operatorID).Confirmation == shift.ConfirmationPending
		if pi != pj {
			return pi
		}
		return candidates[i].StartAt.Before(candidates[j].StartAt)
	})
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

// pickCurrent は CHECK_IN 以外では進行中のシフトを優先し、開始時刻が受信時刻に最も近いシフトを選びます。
func pickCurrent(shifts []*shift.Shift, operatorID string, eventType shift.EventType, at time.Time) *shift.Shift {
	var (
		best     *shift.Shift
		bestRank int
		bestDist time.Duration
	)
	for _, sh := range shifts {
		if sh.Status.IsTerminal() {
			continue
		}
		a := sh.AssignmentFor(operatorID)
		if a == nil || a.Confirmation == shift.ConfirmationDeclined {
			continue
		}

		rank := 1
		if eventType != shift.EventCheckIn && sh.Status == shift.StatusInProgress {
			rank = 0
		}
		dist := sh.StartAt.Sub(at)
		if dist < 0 {
			dist = -dist
		}

		if best == nil || rank < bestRank || (rank == bestRank && dist < bestDist) {
			best, bestRank, bestDist = sh, rank, dist
		}
	}
	return best
}
