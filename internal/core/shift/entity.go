package shift

import (
	"sort"
	"time"
)

// Status はシフトのライフサイクル状態を表します。
type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// EventType は勤怠イベントの種別です。
type EventType string

const (
	EventCheckIn    EventType = "CHECK_IN"
	EventBreakStart EventType = "BREAK_START"
	EventBreakEnd   EventType = "BREAK_END"
	EventCheckOut   EventType = "CHECK_OUT"
)

// Source は勤怠イベントの入力経路です。
type Source string

const (
	SourceAPI       Source = "API"
	SourceMessaging Source = "MESSAGING"
)

// ConfirmationStatus はアサインの出勤確認状態です。
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "PENDING"
	ConfirmationConfirmed ConfirmationStatus = "CONFIRMED"
	ConfirmationDeclined  ConfirmationStatus = "DECLINED"
)

// Coordinates は緯度経度の組です。記録のみで検証には使いません。
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Shop は警備対象の店舗です。
type Shop struct {
	ID                     string
	Name                   string
	Latitude               *float64
	Longitude              *float64
	DefaultHourlyRateCents *int64
	RulesText              string
}

// Operator は警備員です。
type Operator struct {
	ID              string
	FullName        string
	Phone           string
	TelegramChatID  int64
	HourlyRateCents *int64
	IsActive        bool
}

// Assignment はシフトと警備員の紐付けです。
type Assignment struct {
	ID           string
	ShiftID      string
	OperatorID   string
	Confirmation ConfirmationStatus
	CreatedAt    time.Time
	Operator     *Operator
}

// AttendanceEvent は一度作成されると変更されない勤怠記録です。
type AttendanceEvent struct {
	ID          string
	ShiftID     string
	OperatorID  string
	EventType   EventType
	Source      Source
	Timestamp   time.Time
	Coordinates *Coordinates
	CreatedAt   time.Time
}

// Shift は店舗に紐づく勤務枠です。
type Shift struct {
	ID                 string
	ShopID             string
	Date               time.Time
	StartAt            time.Time
	EndAt              time.Time
	UnpaidBreakMinutes int
	Status             Status
	Shop               *Shop
	Assignments        []*Assignment
	Events             []*AttendanceEvent
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PrimaryAssignment は作成順で最初のアサインを返します。支払対象者はこのアサインの警備員です。
func (s *Shift) PrimaryAssignment() *Assignment {
	var primary *Assignment
	for _, a := range s.Assignments {
		if a == nil {
			continue
		}
		if primary == nil || a.CreatedAt.Before(primary.CreatedAt) {
			primary = a
		}
	}
	return primary
}

// AssignmentFor は指定した警備員のアサインを返します。
func (s *Shift) AssignmentFor(operatorID string) *Assignment {
	for _, a := range s.Assignments {
		if a != nil && a.OperatorID == operatorID {
			return a
		}
	}
	return nil
}

// FirstEvent は指定種別で最も早いタイムスタンプのイベントを返します。
func (s *Shift) FirstEvent(eventType EventType) *AttendanceEvent {
	var first *AttendanceEvent
	for _, e := range s.Events {
		if e == nil || e.EventType != eventType {
			continue
		}
		if first == nil || e.Timestamp.Before(first.Timestamp) {
			first = e
		}
	}
	return first
}

// SortEvents はイベントログを記録時刻ではなく申告タイムスタンプ順に並べ替えます。
func (s *Shift) SortEvents() {
	sort.SliceStable(s.Events, func(i, j int) bool {
		return s.Events[i].Timestamp.Before(s.Events[j].Timestamp)
	})
}

// IsScheduledOn は date と同じ暦日のシフトかを判定します。
func (s *Shift) IsScheduledOn(date time.Time) bool {
	y1, m1, d1 := s.Date.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func isValidEventType(t EventType) bool {
	switch t {
	case EventCheckIn, EventBreakStart, EventBreakEnd, EventCheckOut:
		return true
	default:
		return false
	}
}

func isValidSource(s Source) bool {
	switch s {
	case SourceAPI, SourceMessaging:
		return true
	default:
		return false
	}
}

func isValidConfirmation(c ConfirmationStatus) bool {
	switch c {
	case ConfirmationPending, ConfirmationConfirmed, ConfirmationDeclined:
		return true
	default:
		return false
	}
}
