//go:build !linux

package source

import (
	"notifnuke/internal/monitor"
	logx "notifnuke/pkg/logx"
)

func newDunst(Config, logx.Logger) (monitor.Source, error) { return nil, ErrUnsupported }

func newSwayNC(Config, logx.Logger) (monitor.Source, error) { return nil, ErrUnsupported }
