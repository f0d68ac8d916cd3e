package monitorservice

import (
	"context"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/eventbus"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/typeutil"
	"github.com/alphadose/haxmap"
	"gorm.io/gorm"
	"log/slog"
	"sync"
	"time"
)

const (
	eventBuffer            = 256
	defaultDeliveryWorkers = 4
	defaultShutdownGrace   = 10 * time.Second
)

type Service struct {
	log      *slog.Logger
	config   *types.Config
	db       *gorm.DB
	source   types.EventProvider
	notifier types.Notifier

	eventBus      *eventbus.Bus[any]
	dedup         *dedupIndex
	queues        *haxmap.Map[string, *deliveryQueue]
	events        chan types.ContainerEvent
	deliverySlots chan struct{}

	deliverCtx       context.Context
	cancelDeliver    context.CancelFunc
	cancelWorkers    context.CancelFunc
	cancelDispatcher context.CancelFunc
	wg               sync.WaitGroup
	drainWg          sync.WaitGroup

	healthMutex sync.RWMutex
	health      types.Health
}

var _ types.MonitorService = (*Service)(nil)

func New(db *gorm.DB, source types.EventProvider, notifier types.Notifier, config *types.Config) *Service {
	workers := config.DeliveryWorkers
	if workers <= 0 {
		workers = defaultDeliveryWorkers
	}

	return &Service{
		log:           slog.With(slog.String("component", "monitorservice")),
		config:        config,
		db:            db,
		source:        source,
		notifier:      notifier,
		eventBus:      eventbus.NewBus[any](),
		dedup:         newDedupIndex(config.DedupWindow, config.DedupRefreshOnDuplicate),
		queues:        haxmap.New[string, *deliveryQueue](),
		events:        make(chan types.ContainerEvent, eventBuffer),
		deliverySlots: make(chan struct{}, workers),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.log.Info("starting monitor",
		slog.String("node", s.config.NodeName),
		slog.Duration("dedup-window", s.config.DedupWindow))

	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	s.cancelDispatcher = cancelDispatcher
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.eventBus.StartDispatcher(dispatcherCtx)
	}()

	s.eventBus.SubscribeToEvents(s.journalRecorder)

	if err := s.restoreDedupIndex(ctx); err != nil {
		s.log.Warn("failed to restore dedup state", slog.Any("error", err))
	}

	s.healthMutex.Lock()
	s.health.StartedAt = time.Now()
	s.healthMutex.Unlock()

	s.deliverCtx, s.cancelDeliver = context.WithCancel(context.Background())

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	s.cancelWorkers = cancelWorkers

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.startSourceWorker(workerCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.startEventLoop(workerCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.startSweepWorker(workerCtx)
	}()

	if s.config.StartupNotice {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sendStartupNotice()
		}()
	}

	return nil
}

// Stop drains in-flight deliveries within the shutdown grace period, sends
// the shutdown notice, then tears the workers down. The dispatcher goes last
// so late delivery outcomes still reach the journal.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("stopping monitor")

	if s.cancelWorkers != nil {
		s.cancelWorkers()
	}

	grace := s.config.ShutdownGrace
	if grace <= 0 {
		grace = defaultShutdownGrace
	}

	done := make(chan struct{})
	go func() {
		s.drainWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		s.log.Warn("shutdown grace elapsed, aborting in-flight deliveries")
		s.cancelDeliver()
		<-done
	case <-ctx.Done():
		s.cancelDeliver()
		<-done
	}

	if s.config.StartupNotice {
		s.sendShutdownNotice()
	}

	if s.cancelDeliver != nil {
		s.cancelDeliver()
	}
	if s.cancelDispatcher != nil {
		s.cancelDispatcher()
	}
	s.wg.Wait()

	return s.source.Close()
}

func (s *Service) Health() types.Health {
	s.healthMutex.RLock()
	defer s.healthMutex.RUnlock()

	return s.health
}

func (s *Service) setSourceConnected(connected bool) {
	s.healthMutex.Lock()
	defer s.healthMutex.Unlock()

	if connected {
		s.health.SourceConnected = true
		s.health.DisconnectedSince = nil
		return
	}
	if s.health.SourceConnected || s.health.DisconnectedSince == nil {
		s.health.DisconnectedSince = typeutil.Ptr(time.Now())
	}
	s.health.SourceConnected = false
}

func (s *Service) markEventReceived() {
	s.healthMutex.Lock()
	defer s.healthMutex.Unlock()

	s.health.LastEventAt = typeutil.Ptr(time.Now())
}
