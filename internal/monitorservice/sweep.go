package monitorservice

import (
	"context"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"log/slog"
	"time"
)

const (
	sweepInterval    = time.Minute
	journalRetention = 30 * 24 * time.Hour
)

func (s *Service) startSweepWorker(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.performSweep(ctx)
		}
	}
}

// performSweep drops expired dedup fingerprints and prunes journal rows past
// their retention.
func (s *Service) performSweep(ctx context.Context) {
	startedAt := time.Now()
	expired := s.dedup.Sweep()

	result := s.db.WithContext(ctx).
		Where("created_at < ?", time.Now().Add(-journalRetention)).
		Delete(&types.Notification{})
	if result.Error != nil {
		s.log.Error("failed to prune notification journal", slog.Any("error", result.Error))
	}

	if expired > 0 || result.RowsAffected > 0 {
		s.log.Debug("sweep completed",
			slog.Int("expired-fingerprints", expired),
			slog.Int64("pruned-notifications", result.RowsAffected),
			slog.Duration("duration", time.Now().Sub(startedAt)))
	}
}
