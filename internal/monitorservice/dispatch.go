package monitorservice

import (
	"context"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"log/slog"
	"sync"
)

// deliveryQueue holds the undelivered events of one container. A single
// drain goroutine per queue keeps same-container notifications in order
// while different containers deliver in parallel.
type deliveryQueue struct {
	mutex    sync.Mutex
	pending  []types.ContainerEvent
	draining bool
}

func (s *Service) startEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-s.events:
			s.handleEvent(event)
		}
	}
}

func (s *Service) handleEvent(event types.ContainerEvent) {
	s.markEventReceived()

	if suppressed, firstSeenAt := s.dedup.Admit(event.Fingerprint()); suppressed {
		s.log.Debug("suppressing duplicate event",
			slog.String("kind", string(event.Kind)),
			slog.String("container", event.ContainerName))
		s.eventBus.PublishEvent(&EventSuppressedMessage{Event: event, FirstSeenAt: firstSeenAt})
		return
	}

	s.log.Info("container event accepted",
		slog.String("kind", string(event.Kind)),
		slog.String("container", event.ContainerName),
		slog.String("service", event.ServiceName))
	s.eventBus.PublishEvent(&EventAcceptedMessage{Event: event})
	s.enqueueDelivery(event)
}

func (s *Service) enqueueDelivery(event types.ContainerEvent) {
	queue, _ := s.queues.GetOrSet(event.ContainerID, &deliveryQueue{})

	queue.mutex.Lock()
	queue.pending = append(queue.pending, event)
	shouldDrain := !queue.draining
	if shouldDrain {
		queue.draining = true
	}
	queue.mutex.Unlock()

	if shouldDrain {
		s.drainWg.Add(1)
		go func() {
			defer s.drainWg.Done()
			s.drainQueue(queue)
		}()
	}
}

func (s *Service) drainQueue(queue *deliveryQueue) {
	for {
		queue.mutex.Lock()
		if len(queue.pending) == 0 {
			queue.draining = false
			queue.mutex.Unlock()
			return
		}
		event := queue.pending[0]
		queue.pending = queue.pending[1:]
		queue.mutex.Unlock()

		s.deliverEvent(event)
	}
}

func (s *Service) deliverEvent(event types.ContainerEvent) {
	s.deliverySlots <- struct{}{}
	defer func() { <-s.deliverySlots }()

	payload := s.notifier.BuildPayload(event)
	outcome := s.notifier.Deliver(s.deliverCtx, payload)
	s.eventBus.PublishEvent(&DeliveryCompletedMessage{Event: event, Outcome: outcome})

	if outcome.Delivered() {
		s.log.Info("notification delivered",
			slog.String("kind", string(event.Kind)),
			slog.String("container", event.ContainerName),
			slog.Int("attempts", outcome.Attempts))
		return
	}
	s.log.Error("notification delivery failed",
		slog.String("kind", string(event.Kind)),
		slog.String("container", event.ContainerName),
		slog.String("outcome", string(outcome.Status)),
		slog.Any("error", outcome.Err))
}
