package telegram

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"
)

// NewBot はロングポーリングのボットを生成します。
func NewBot(token string, pollTimeout time.Duration) (*tele.Bot, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return bot, nil
}

// Run はボットを起動し、ctx がキャンセルされると停止します。
func Run(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()

	<-ctx.Done()
	bot.Stop()
	<-done
	return nil
}
