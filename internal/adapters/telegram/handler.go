package telegram

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/ogurasousui/guard-shifts/internal/core/inbox"
	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

const (
	replyShareContact  = "Benvenuto! Condividi il tuo numero di telefono per collegare il tuo account."
	replyLinked        = "Account collegato. Riceverai qui le richieste di conferma dei turni."
	replyUnknownSender = "Numero non registrato. Contatta l'ufficio turni."
	replyNoShift       = "Nessun turno trovato per questo messaggio."
	replyRejected      = "Operazione non consentita sul turno."
	replyFailure       = "Si è verificato un errore, riprova più tardi."
	replyForeignPhone  = "Condividi il tuo contatto, non quello di altri."
)

// Inbox は返信の処理を行うコアサービスです。
type Inbox interface {
	Handle(ctx context.Context, msg inbox.InboundMessage) (*inbox.Outcome, error)
	LinkChat(ctx context.Context, phone string, chatID int64) (*shift.Operator, error)
}

// Handler は Telegram の更新を Inbox へ渡します。
type Handler struct {
	inbox   Inbox
	logger  *zap.Logger
	timeout time.Duration
}

// NewHandler は Handler を生成します。
func NewHandler(in Inbox, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{inbox: in, logger: logger, timeout: 10 * time.Second}
}

// Register はボットにハンドラを登録します。
func (h *Handler) Register(bot *tele.Bot) {
	bot.Handle("/start", h.OnStart)
	bot.Handle(tele.OnContact, h.OnContact)
	bot.Handle(tele.OnText, h.OnText)
}

// OnStart は連絡先共有ボタンを表示します。
func (h *Handler) OnStart(c tele.Context) error {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Contact("Condividi numero")))
	return c.Send(replyShareContact, markup)
}

// OnContact は共有された本人の電話番号でチャットを警備員に紐付けます。
func (h *Handler) OnContact(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		return nil
	}
	if sender := c.Sender(); sender != nil && msg.Contact.UserID != 0 && msg.Contact.UserID != sender.ID {
		return c.Send(replyForeignPhone)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if _, err := h.inbox.LinkChat(ctx, msg.Contact.PhoneNumber, c.Chat().ID); err != nil {
		return c.Send(h.replyForError(err, c.Chat().ID))
	}
	return c.Send(replyLinked, &tele.ReplyMarkup{RemoveKeyboard: true})
}

// OnText は返信を分類して処理し、結果を返答します。
func (h *Handler) OnText(c tele.Context) error {
	msg := c.Message()
	if msg == nil || c.Chat() == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	receivedAt := msg.Time()
	if msg.Unixtime == 0 {
		receivedAt = time.Now()
	}

	out, err := h.inbox.Handle(ctx, inbox.InboundMessage{
		ChatID:     c.Chat().ID,
		Text:       c.Text(),
		ReceivedAt: receivedAt.UTC(),
	})
	if err != nil {
		return c.Send(h.replyForError(err, c.Chat().ID))
	}
	return c.Send(out.Reply)
}

func (h *Handler) replyForError(err error, chatID int64) string {
	switch {
	case errors.Is(err, shift.ErrOperatorNotFound), errors.Is(err, inbox.ErrInvalidSender):
		return replyUnknownSender
	case errors.Is(err, inbox.ErrNoActiveShift):
		return replyNoShift
	case errors.Is(err, shift.ErrInvalidState), errors.Is(err, shift.ErrUnassignedOperator):
		return replyRejected
	default:
		h.logger.Error("telegram message handling failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return replyFailure
	}
}
