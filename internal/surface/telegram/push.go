package telegram

import (
	"context"

	"golang.org/x/time/rate"

	"notifnuke/internal/surface"
	logx "notifnuke/pkg/logx"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Pusher forwards count changes to one chat. Bursts are coalesced: while the
// limiter holds a send back, only the newest count is kept.
type Pusher struct {
	send    Sender
	chatID  int64
	limiter *rate.Limiter
	pending chan int
	log     logx.Logger
}

func NewPusher(send Sender, chatID int64, perSec float64, log logx.Logger) *Pusher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if perSec <= 0 {
		perSec = 1.0 / 5
	}
	return &Pusher{
		send:    send,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		pending: make(chan int, 1),
		log:     log.With(logx.String("comp", "telegram.push")),
	}
}

// OnCount is the monitor subscription. It never blocks the UI loop.
func (p *Pusher) OnCount(n int) {
	for {
		select {
		case p.pending <- n:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *Pusher) Run(ctx context.Context) error {
	for {
		var n int
		select {
		case <-ctx.Done():
			return nil
		case n = <-p.pending:
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return nil
		}
		select {
		case newer := <-p.pending:
			n = newer
		default:
		}
		if err := p.send.SendText(ctx, p.chatID, surface.CountLine(n)); err != nil {
			p.log.Warn("count push failed", logx.Int64("chat_id", p.chatID), logx.Err(err))
		}
	}
}
