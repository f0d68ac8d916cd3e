package fxlog

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"log/slog"
)

func Logger() fx.Option {
	return fx.WithLogger(func() fxevent.Logger {
		return &fxevent.SlogLogger{Logger: slog.With(slog.String("component", "fx"))}
	})
}
