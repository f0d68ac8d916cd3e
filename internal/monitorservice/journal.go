package monitorservice

import (
	"context"
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/typeutil"
	"github.com/nrednav/cuid2"
	"log/slog"
	"time"
)

// journalRecorder persists one row per delivery attempt cycle, successful or
// not. The journal doubles as the dedup state carried across restarts.
func (s *Service) journalRecorder(ctx context.Context, anyMessage any) {
	message, ok := anyMessage.(*DeliveryCompletedMessage)
	if !ok {
		return
	}

	notification := &types.Notification{
		ID:            cuid2.Generate(),
		Fingerprint:   message.Event.Fingerprint(),
		Kind:          message.Event.Kind,
		ContainerID:   message.Event.ContainerID,
		ContainerName: message.Event.ContainerName,
		ServiceName:   message.Event.ServiceName,
		NodeName:      message.Event.NodeName,
		Outcome:       message.Outcome.Status,
		Attempts:      message.Outcome.Attempts,
		StatusCode:    message.Outcome.StatusCode,
		OccurredAt:    message.Event.OccurredAt,
	}
	if message.Outcome.Delivered() {
		notification.DeliveredAt = typeutil.Ptr(time.Now())
	}

	// the write has to land even when shutdown cancels the dispatcher mid-insert
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(notification).Error; err != nil {
		s.log.Error("failed to insert notification", slog.Any("error", err))
	}
}

func (s *Service) restoreDedupIndex(ctx context.Context) error {
	if s.config.DedupWindow <= 0 {
		return nil
	}

	var notifications []*types.Notification
	err := s.db.WithContext(ctx).
		Where("occurred_at > ?", time.Now().Add(-s.config.DedupWindow)).
		Find(&notifications).
		Error
	if err != nil {
		return fmt.Errorf("failed to retrieve recent notifications: %w", err)
	}

	for _, notification := range notifications {
		s.dedup.Restore(notification.Fingerprint, notification.OccurredAt)
	}
	if len(notifications) > 0 {
		s.log.Info("restored dedup state from journal", slog.Int("entries", len(notifications)))
	}
	return nil
}
