// Package telegram は Telegram ボットを出勤確認の配信と返信の受信に使います。
package telegram

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/ogurasousui/guard-shifts/internal/core/confirmation"
)

// Messenger は *tele.Bot のうち送信に使う部分です。
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Sender は確認依頼をチャットへ送ります。
type Sender struct {
	bot Messenger
}

var _ confirmation.Sender = (*Sender)(nil)

// NewSender は Sender を生成します。
func NewSender(bot Messenger) *Sender {
	return &Sender{bot: bot}
}

// Send は OK / NO の返信ボタン付きで確認依頼を送ります。
func (s *Sender) Send(ctx context.Context, req confirmation.Request) error {
	if req.ChatID == 0 {
		return fmt.Errorf("%w: operator %s", confirmation.ErrMissingChannelTarget, req.OperatorID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.bot.Send(tele.ChatID(req.ChatID), req.Text, confirmationKeyboard()); err != nil {
		return fmt.Errorf("telegram: send confirmation to %d: %w", req.ChatID, err)
	}
	return nil
}

func confirmationKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Text("OK"), markup.Text("NO")))
	return markup
}
