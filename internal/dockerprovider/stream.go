package dockerprovider

import (
	"context"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"log/slog"
)

// Stream forwards start and die events from the docker daemon to out until
// the connection drops or ctx is cancelled. A single call maps to a single
// events request, reconnecting is the caller's concern.
func (p *Provider) Stream(ctx context.Context, out chan<- types.ContainerEvent) error {
	messages, errs := p.client.Events(ctx, events.ListOptions{Filters: eventFilters()})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			if err == nil {
				return types.ErrEventStreamClosed
			}
			return err
		case message, ok := <-messages:
			if !ok {
				return types.ErrEventStreamClosed
			}

			event, ok := p.classify(message)
			if !ok {
				continue
			}

			p.log.Debug("received container event",
				slog.String("kind", string(event.Kind)),
				slog.String("container", event.ContainerName))

			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func eventFilters() filters.Args {
	return filters.NewArgs(
		filters.Arg("type", string(events.ContainerEventType)),
		filters.Arg("event", string(events.ActionStart)),
		filters.Arg("event", string(events.ActionDie)),
	)
}
