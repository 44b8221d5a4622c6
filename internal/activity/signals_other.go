//go:build !unix

package activity

import (
	"context"

	logx "notifnuke/pkg/logx"
)

type noSignals struct{}

func (noSignals) Name() string { return "signals" }

func (noSignals) Run(context.Context, func(Signal)) error { return ErrUnsupported }

func newSignals(logx.Logger) Watcher { return noSignals{} }
