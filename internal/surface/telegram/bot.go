package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "notifnuke/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Bot adapts telebot to the Router.
type Bot struct {
	bot    *tele.Bot
	router *Router
	log    logx.Logger
}

func NewBot(cfg Config, router *Router, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "telegram"))
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, _ tele.Context) {
			log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	return &Bot{bot: b, router: router, log: log}, nil
}

func (b *Bot) SendText(_ context.Context, chatID int64, text string) error {
	_, err := b.bot.Send(tele.ChatID(chatID), text)
	return err
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil || m.Chat == nil {
			return nil
		}
		cmd, args, ok := ParseCommand(m.Text)
		if !ok {
			return nil
		}
		req := &Request{
			ChatID:  m.Chat.ID,
			FromID:  m.Sender.ID,
			Command: cmd,
			Args:    args,
			Reply:   func(text string) error { return c.Send(text) },
		}
		err := b.router.Dispatch(ctx, req)
		if err != nil && !errors.Is(err, ErrUnauthorized) {
			_ = c.Send("Error: " + err.Error())
		}
		return nil
	})

	cmds := b.router.Commands()
	menu := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		menu = append(menu, tele.Command{Text: c[0], Description: c[1]})
	}
	if err := b.bot.SetCommands(menu); err != nil {
		b.log.Warn("setting bot commands failed", logx.Err(err))
	}

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		b.log.Info("polling started")
		b.bot.Start()
		b.log.Info("polling stopped")
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-exited
		return nil
	case <-exited:
		return errors.New("telegram polling exited")
	}
}
