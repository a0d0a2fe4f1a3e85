// Package notify delivers job-failure notifications to a Telegram chat.
// It is intentionally fire-and-forget: a notification that cannot be sent
// is logged and dropped, never retried, so a Telegram outage cannot back
// up the scheduler.
package notify

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "recur/pkg/logx"
)

type Config struct {
	Enabled bool
	Token   string
	ChatID  int64
}

// Service sends plain-text messages to one chat. A nil Service is valid
// and discards everything, so callers don't need enabled checks.
type Service struct {
	bot  *tele.Bot
	chat *tele.Chat
	log  logx.Logger
}

// New builds the notifier. Returns (nil, nil) when disabled.
func New(cfg Config, log logx.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// Send-only: no poller is configured, updates are never consumed.
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Service{
		bot:  bot,
		chat: &tele.Chat{ID: cfg.ChatID},
		log:  log,
	}, nil
}

// Notify sends one message. Errors are logged, not returned.
func (s *Service) Notify(ctx context.Context, text string) {
	if s == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.bot.Send(s.chat, text, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
			s.log.Warn("notification send failed", logx.Err(err))
		}
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.log.Warn("notification send timed out")
	}
}
