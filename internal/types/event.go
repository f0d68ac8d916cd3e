package types

import (
	"context"
	"errors"
	"time"
)

type (
	ContainerEventKind string

	ContainerEvent struct {
		Kind          ContainerEventKind
		ContainerID   string
		ContainerName string
		ServiceName   string
		NodeName      string
		Image         string
		ExitCode      *int
		OccurredAt    time.Time
	}

	EventProvider interface {
		Stream(ctx context.Context, out chan<- ContainerEvent) error

		Ping(ctx context.Context) error

		Close() error
	}
)

const (
	ContainerEventKindStarted ContainerEventKind = "started"
	ContainerEventKindStopped ContainerEventKind = "stopped"
)

var ErrEventStreamClosed = errors.New("event stream closed")

// Fingerprint identifies the logical transition for deduplication: same
// container, same kind. Timestamps are deliberately excluded.
func (e ContainerEvent) Fingerprint() string {
	return e.ContainerID + "/" + string(e.Kind)
}

func (e ContainerEvent) ShortID() string {
	if len(e.ContainerID) > 12 {
		return e.ContainerID[:12]
	}
	return e.ContainerID
}
