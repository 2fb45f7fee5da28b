package app

import (
	"context"

	"parley/pkg/state/shutdown"
)

func (a *App) Shutdown(ctx context.Context) error {
	a.state = "shutting_down"
	err := shutdown.ShutdownApp(ctx, shutdown.Components{
		HTTP:        a.srvFast,
		Checkpoints: a.cpCancel,
		Limiters:    a.stopLimiters,
		Sensor:      a.hwSensor,
		Store:       a.db,
	})
	if err == nil {
		a.state = "stopped"
	}
	return err
}
