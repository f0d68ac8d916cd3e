package monitorservice

import (
	"context"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"time"
)

type (
	SourceConnectedMessage struct{}

	SourceDisconnectedMessage struct {
		Error error
	}

	EventAcceptedMessage struct {
		Event types.ContainerEvent
	}

	EventSuppressedMessage struct {
		Event       types.ContainerEvent
		FirstSeenAt time.Time
	}

	DeliveryCompletedMessage struct {
		Event   types.ContainerEvent
		Outcome types.DeliveryOutcome
	}
)

func (s *Service) SubscribeToEvents(handler func(ctx context.Context, event any)) func() {
	return s.eventBus.SubscribeToEvents(handler)
}
