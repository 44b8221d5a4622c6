package app

import (
	"context"
	"strings"

	"notifnuke/internal/config"
	logx "notifnuke/pkg/logx"
)

// startConfigReload fans committed configs out to the hot-reloadable components.
func (a *App) startConfigReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	if newCfg == nil {
		return
	}
	changed, _ := config.SummarizeChange(oldCfg, newCfg)
	if len(changed) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))
	if err := a.mon.Reconfigure(ctx, mapMonitorConfig(newCfg)); err != nil && ctx.Err() == nil {
		a.log.Warn("monitor reconfigure failed", logx.Err(err))
	}
	if err := a.auto.Apply(mapAutoClearConfig(newCfg)); err != nil {
		a.log.Warn("auto clear reconfigure failed", logx.Err(err))
	}
	a.status.Reconfigure(mapStatusFileConfig(newCfg))

	if restart := config.RestartRequired(changed); len(restart) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect", logx.String("sections", strings.Join(restart, ",")))
	}
	a.log.Info("config applied", logx.String("changed", strings.Join(changed, ",")))
}
