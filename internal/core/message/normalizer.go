// Package message は警備員からの自由文の返信を確認・辞退・勤怠のいずれかに分類します。
package message

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

// Kind は分類結果の種別です。
type Kind int

const (
	KindUnrecognized Kind = iota
	KindConfirmation
	KindDecline
	KindAttendance
)

func (k Kind) String() string {
	switch k {
	case KindConfirmation:
		return "confirmation"
	case KindDecline:
		return "decline"
	case KindAttendance:
		return "attendance"
	default:
		return "unrecognized"
	}
}

// Intent は分類結果です。EventType と Coordinates は KindAttendance の場合のみ設定されます。
type Intent struct {
	Kind        Kind
	EventType   shift.EventType
	Coordinates *shift.Coordinates
	Normalized  string
}

// 全文一致のみ。"OK please" は確認にならない。
var (
	confirmationTokens = map[string]struct{}{
		"ok":  {},
		"✅":   {},
		"si":  {},
		"sì":  {},
		"yes": {},
	}
	declineTokens = map[string]struct{}{
		"no":  {},
		"❌":   {},
		"non": {},
	}
)

var (
	keywordPattern    = regexp.MustCompile(`(?i)\b(break start|break end|in|out)(?:\b|\d)`)
	coordinatePattern = regexp.MustCompile(`(?i)\b(?:break start|break end|in|out) ?([+-]?\d+(?:\.\d+)?), ?([+-]?\d+(?:\.\d+)?)`)
)

var keywordEvents = map[string]shift.EventType{
	"in":          shift.EventCheckIn,
	"break start": shift.EventBreakStart,
	"break end":   shift.EventBreakEnd,
	"out":         shift.EventCheckOut,
}

// Normalize はメッセージを分類します。失敗することはなく、判別できない場合は KindUnrecognized です。
// 勤怠キーワードを含む場合は確認トークンより優先します。キーワードは単語単位ですが、直後に座標が続く場合も一致します。
func Normalize(text string) Intent {
	collapsed := strings.Join(strings.Fields(text), " ")
	folded := strings.ToLower(collapsed)

	if loc := keywordPattern.FindStringSubmatchIndex(folded); loc != nil {
		keyword := folded[loc[2]:loc[3]]
		return Intent{
			Kind:        KindAttendance,
			EventType:   keywordEvents[keyword],
			Coordinates: extractCoordinates(folded),
			Normalized:  collapsed,
		}
	}

	if _, ok := confirmationTokens[folded]; ok {
		return Intent{Kind: KindConfirmation, Normalized: collapsed}
	}
	if _, ok := declineTokens[folded]; ok {
		return Intent{Kind: KindDecline, Normalized: collapsed}
	}

	return Intent{Kind: KindUnrecognized, Normalized: collapsed}
}

// 範囲外の座標は記録しない
func extractCoordinates(folded string) *shift.Coordinates {
	m := coordinatePattern.FindStringSubmatch(folded)
	if m == nil {
		return nil
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil
	}

	return &shift.Coordinates{Latitude: lat, Longitude: lon}
}
