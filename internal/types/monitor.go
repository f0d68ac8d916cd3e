package types

import (
	"context"
	"time"
)

type (
	Health struct {
		StartedAt         time.Time
		SourceConnected   bool
		DisconnectedSince *time.Time
		LastEventAt       *time.Time
	}

	MonitorService interface {
		Start(ctx context.Context) error

		Stop(ctx context.Context) error

		Health() Health

		SubscribeToEvents(handler func(ctx context.Context, event any)) func()
	}
)
