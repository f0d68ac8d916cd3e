package monitorservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = time.Minute
	defaultConnectTimeout = 10 * time.Second
)

// startSourceWorker keeps a single event stream open against the docker
// daemon, reconnecting with exponential backoff when it drops.
func (s *Service) startSourceWorker(ctx context.Context) {
	delay := initialReconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
			connected, err := s.watchSource(ctx)
			if ctx.Err() != nil {
				return
			}

			if connected {
				delay = initialReconnectDelay
				s.eventBus.PublishEvent(&SourceDisconnectedMessage{Error: err})
				s.log.Error("event stream disconnected",
					slog.Any("error", err),
					slog.Duration("retry-in", delay))
			} else {
				s.log.Error("failed to connect to docker daemon",
					slog.Any("error", err),
					slog.Duration("retry-in", delay))
			}
			s.setSourceConnected(false)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
		}
	}
}

func (s *Service) watchSource(ctx context.Context) (bool, error) {
	connectTimeout := s.config.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, connectTimeout)
	err := s.source.Ping(pingCtx)
	cancelPing()
	if err != nil {
		return false, fmt.Errorf("failed to ping docker daemon: %w", err)
	}

	s.eventBus.PublishEvent(&SourceConnectedMessage{})
	s.setSourceConnected(true)
	s.log.Info("event stream connected", slog.String("node", s.config.NodeName))

	return true, s.source.Stream(ctx, s.events)
}
