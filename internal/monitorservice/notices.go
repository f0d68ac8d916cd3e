package monitorservice

import (
	"context"
	"log/slog"
	"time"
)

const shutdownNoticeTimeout = 5 * time.Second

func (s *Service) sendStartupNotice() {
	outcome := s.notifier.Deliver(s.deliverCtx, s.notifier.BuildStartupPayload())
	if outcome.Delivered() {
		s.log.Info("startup notice delivered")
		return
	}
	s.log.Warn("failed to deliver startup notice", slog.Any("error", outcome.Err))
}

// sendShutdownNotice runs on a short deadline of its own, stopping must not
// hang on a slow webhook.
func (s *Service) sendShutdownNotice() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownNoticeTimeout)
	defer cancel()

	outcome := s.notifier.Deliver(ctx, s.notifier.BuildShutdownPayload())
	if outcome.Delivered() {
		s.log.Info("shutdown notice delivered")
		return
	}
	s.log.Warn("failed to deliver shutdown notice", slog.Any("error", outcome.Err))
}
