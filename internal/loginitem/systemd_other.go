//go:build !linux

package loginitem

import logx "notifnuke/pkg/logx"

func NewSystemd(UnitSpec, logx.Logger) (Registrar, error) { return Unsupported{}, nil }
