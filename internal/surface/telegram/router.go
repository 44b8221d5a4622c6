// Package telegram is a remote control surface: a bot that answers a few
// commands from its owners and can push count changes to a chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	logx "notifnuke/pkg/logx"
)

var ErrUnauthorized = errors.New("telegram: sender is not an owner")

// Request is one incoming command, independent of the bot library.
type Request struct {
	ChatID  int64
	FromID  int64
	Command string // without the leading slash or @botname
	Args    []string
	Reply   func(text string) error
}

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

type route struct {
	help string
	h    HandlerFunc
}

// Router maps command names to handlers behind a middleware chain.
type Router struct {
	routes map[string]route
	mw     []Middleware
}

func NewRouter(mw ...Middleware) *Router {
	return &Router{routes: map[string]route{}, mw: mw}
}

func (r *Router) Handle(cmd, help string, h HandlerFunc) {
	r.routes[strings.ToLower(cmd)] = route{help: help, h: h}
}

// Commands lists the registered commands for the bot menu, sorted by name.
func (r *Router) Commands() [][2]string {
	out := make([][2]string, 0, len(r.routes))
	for name, rt := range r.routes {
		if rt.help == "" {
			continue
		}
		out = append(out, [2]string{name, rt.help})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func (r *Router) Dispatch(ctx context.Context, req *Request) error {
	rt, ok := r.routes[strings.ToLower(req.Command)]
	h := rt.h
	if !ok {
		h = func(context.Context, *Request) error {
			return req.Reply(fmt.Sprintf("Unknown command /%s. Try /help.", req.Command))
		}
	}
	return Chain(h, r.mw...)(ctx, req)
}

// ParseCommand splits "/clear@mybot now" into ("clear", ["now"]). ok is false for plain text.
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd = strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return "", nil, false
	}
	return strings.ToLower(cmd), fields[1:], true
}

// MWOwnerOnly drops requests from anyone not listed. Strangers get no reply.
func MWOwnerOnly(owners []int64) Middleware {
	allowed := make(map[int64]struct{}, len(owners))
	for _, id := range owners {
		allowed[id] = struct{}{}
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if _, ok := allowed[req.FromID]; !ok {
				return ErrUnauthorized
			}
			return next(ctx, req)
		}
	}
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			fields := []logx.Field{
				logx.Int64("chat_id", req.ChatID),
				logx.Int64("from_id", req.FromID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", time.Since(start)),
			}
			switch {
			case errors.Is(err, ErrUnauthorized):
				log.Warn("command from stranger ignored", fields...)
			case err != nil:
				log.Warn("command failed", append(fields, logx.Err(err))...)
			default:
				log.Debug("command ok", fields...)
			}
			return err
		}
	}
}
