//go:build !linux

package activity

import (
	"context"

	logx "notifnuke/pkg/logx"
)

type unsupported string

func (u unsupported) Name() string { return string(u) }

func (unsupported) Run(context.Context, func(Signal)) error { return ErrUnsupported }

func newLogin1(logx.Logger) Watcher { return unsupported("login1") }

func newScreenSaver(logx.Logger) Watcher { return unsupported("screensaver") }
