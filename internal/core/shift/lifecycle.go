package shift

import "fmt"

// Trigger はシフト状態を遷移させる契機です。
type Trigger string

const (
	TriggerFirstCheckIn Trigger = "first_check_in"
	TriggerCancel       Trigger = "cancel"
	TriggerComplete     Trigger = "complete"
)

// COMPLETED は管理操作でのみ到達する。CHECK_OUT からは遷移しない。
var transitions = map[Status]map[Trigger]Status{
	StatusPlanned: {
		TriggerFirstCheckIn: StatusInProgress,
		TriggerCancel:       StatusCancelled,
	},
	StatusInProgress: {
		TriggerCancel:   StatusCancelled,
		TriggerComplete: StatusCompleted,
	},
}

// Transition は遷移表に従って次の状態を返します。許可されない遷移は ErrInvalidState です。
func Transition(from Status, trigger Trigger) (Status, error) {
	next, ok := transitions[from][trigger]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidState, trigger, from)
	}
	return next, nil
}

// IsTerminal は COMPLETED または CANCELLED かを返します。
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid は既知の状態かを返します。
func (s Status) IsValid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}
