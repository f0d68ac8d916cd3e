package dockerprovider

import (
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/typeutil"
	"github.com/docker/docker/api/types/events"
	"github.com/google/go-containerregistry/pkg/name"
	"strconv"
	"strings"
	"time"
)

const swarmServiceLabel = "com.docker.swarm.service.name"

func (p *Provider) classify(message events.Message) (types.ContainerEvent, bool) {
	if message.Type != events.ContainerEventType {
		return types.ContainerEvent{}, false
	}

	var kind types.ContainerEventKind
	switch message.Action {
	case events.ActionStart:
		kind = types.ContainerEventKindStarted
	case events.ActionDie:
		kind = types.ContainerEventKindStopped
	default:
		return types.ContainerEvent{}, false
	}

	attributes := message.Actor.Attributes
	serviceName := attributes[swarmServiceLabel]
	if p.config.SwarmOnly && serviceName == "" {
		return types.ContainerEvent{}, false
	}

	event := types.ContainerEvent{
		Kind:          kind,
		ContainerID:   message.Actor.ID,
		ContainerName: attributes["name"],
		ServiceName:   serviceName,
		NodeName:      p.config.NodeName,
		Image:         imageDisplayName(attributes["image"]),
		OccurredAt:    eventTime(message),
	}
	if event.ContainerName == "" {
		event.ContainerName = event.ShortID()
	}
	if kind == types.ContainerEventKindStopped {
		if code, err := strconv.Atoi(attributes["exitCode"]); err == nil {
			event.ExitCode = typeutil.Ptr(code)
		}
	}
	return event, true
}

func eventTime(message events.Message) time.Time {
	if message.TimeNano > 0 {
		return time.Unix(0, message.TimeNano)
	}
	if message.Time > 0 {
		return time.Unix(message.Time, 0)
	}
	return time.Now()
}

// imageDisplayName strips the digest from an image reference and normalizes
// it to the repository:tag form used in notification fields.
func imageDisplayName(raw string) string {
	if raw == "" {
		return ""
	}

	base, _, _ := strings.Cut(raw, "@")
	ref, err := name.ParseReference(base, name.WithDefaultRegistry(""), name.WithDefaultTag("latest"))
	if err != nil {
		return raw
	}
	// Name is the normalized form, String echoes the original input
	return ref.Name()
}
