package monitorservice

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeSource struct {
	mutex   sync.Mutex
	events  chan types.ContainerEvent
	pingErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan types.ContainerEvent, 16)}
}

func (f *fakeSource) Stream(ctx context.Context, out chan<- types.ContainerEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-f.events:
			if !ok {
				return types.ErrEventStreamClosed
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (f *fakeSource) Ping(ctx context.Context) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.pingErr
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) setPingErr(err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.pingErr = err
}

// fakeNotifier encodes each payload as its event fingerprint so tests can
// assert on delivery order. Calls are recorded on entry.
type fakeNotifier struct {
	mutex     sync.Mutex
	recorded  []string
	outcomeFn func(payload types.WebhookPayload) types.DeliveryOutcome
	delay     time.Duration
}

func (f *fakeNotifier) BuildPayload(event types.ContainerEvent) types.WebhookPayload {
	return types.WebhookPayload{Content: event.Fingerprint()}
}

func (f *fakeNotifier) BuildStartupPayload() types.WebhookPayload {
	return types.WebhookPayload{Content: "notice/startup"}
}

func (f *fakeNotifier) BuildShutdownPayload() types.WebhookPayload {
	return types.WebhookPayload{Content: "notice/shutdown"}
}

func (f *fakeNotifier) Deliver(ctx context.Context, payload types.WebhookPayload) types.DeliveryOutcome {
	f.mutex.Lock()
	f.recorded = append(f.recorded, payload.Content)
	outcomeFn := f.outcomeFn
	f.mutex.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return types.DeliveryOutcome{
				Status:   types.DeliveryStatusFailedExhausted,
				Attempts: 1,
				Err:      ctx.Err(),
			}
		}
	}

	if outcomeFn != nil {
		return outcomeFn(payload)
	}
	return types.DeliveryOutcome{Status: types.DeliveryStatusDelivered, Attempts: 1, StatusCode: 204}
}

func (f *fakeNotifier) calls() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.recorded...)
}

func (f *fakeNotifier) callsFor(containerID string) []string {
	var matched []string
	for _, call := range f.calls() {
		if strings.HasPrefix(call, containerID+"/") {
			matched = append(matched, call)
		}
	}
	return matched
}

func newTestService(t *testing.T, notifier types.Notifier, config *types.Config) (*Service, *fakeSource) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "monitor.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Notification{}))

	if config.NodeName == "" {
		config.NodeName = "node-1"
	}
	if config.DeliveryWorkers == 0 {
		config.DeliveryWorkers = 2
	}
	if config.ShutdownGrace == 0 {
		config.ShutdownGrace = 2 * time.Second
	}

	source := newFakeSource()
	return New(db, source, notifier, config), source
}

func containerEvent(containerID string, kind types.ContainerEventKind) types.ContainerEvent {
	return types.ContainerEvent{
		Kind:          kind,
		ContainerID:   containerID,
		ContainerName: "container-" + containerID,
		ServiceName:   "web",
		NodeName:      "node-1",
		OccurredAt:    time.Now(),
	}
}

func journalCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&types.Notification{}).Count(&count).Error)
	return count
}

func TestServiceDeliversAcceptedEventsInOrder(t *testing.T) {
	notifier := &fakeNotifier{}
	service, source := newTestService(t, notifier, &types.Config{})
	require.NoError(t, service.Start(context.Background()))
	defer service.Stop(context.Background())

	source.events <- containerEvent("abc", types.ContainerEventKindStarted)
	source.events <- containerEvent("abc", types.ContainerEventKindStopped)

	require.Eventually(t, func() bool {
		return len(notifier.calls()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"abc/started", "abc/stopped"}, notifier.calls())
}

func TestServiceSuppressesDuplicateEvents(t *testing.T) {
	notifier := &fakeNotifier{}
	service, source := newTestService(t, notifier, &types.Config{DedupWindow: 10 * time.Second})

	var mutex sync.Mutex
	var suppressed []*EventSuppressedMessage
	service.SubscribeToEvents(func(_ context.Context, anyMessage any) {
		if message, ok := anyMessage.(*EventSuppressedMessage); ok {
			mutex.Lock()
			suppressed = append(suppressed, message)
			mutex.Unlock()
		}
	})

	require.NoError(t, service.Start(context.Background()))
	defer service.Stop(context.Background())

	source.events <- containerEvent("abc", types.ContainerEventKindStarted)
	source.events <- containerEvent("abc", types.ContainerEventKindStarted)

	require.Eventually(t, func() bool {
		var count int64
		service.db.Model(&types.Notification{}).Count(&count)
		mutex.Lock()
		defer mutex.Unlock()
		return len(suppressed) == 1 && count == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"abc/started"}, notifier.calls())
	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, "abc", suppressed[0].Event.ContainerID)
}

func TestServiceKeepsPerContainerOrderUnderLoad(t *testing.T) {
	notifier := &fakeNotifier{delay: 30 * time.Millisecond}
	service, source := newTestService(t, notifier, &types.Config{DeliveryWorkers: 4})
	require.NoError(t, service.Start(context.Background()))
	defer service.Stop(context.Background())

	sequence := []types.ContainerEventKind{
		types.ContainerEventKindStarted,
		types.ContainerEventKindStopped,
		types.ContainerEventKindStarted,
	}
	for _, kind := range sequence {
		source.events <- containerEvent("aaa", kind)
		source.events <- containerEvent("bbb", kind)
	}

	require.Eventually(t, func() bool {
		return len(notifier.calls()) == 6
	}, 5*time.Second, 10*time.Millisecond)

	expected := []string{"started", "stopped", "started"}
	for _, containerID := range []string{"aaa", "bbb"} {
		calls := notifier.callsFor(containerID)
		require.Len(t, calls, 3, containerID)
		for i, kind := range expected {
			assert.Equal(t, containerID+"/"+kind, calls[i])
		}
	}
}

func TestServiceIsolatesFailingContainers(t *testing.T) {
	notifier := &fakeNotifier{
		outcomeFn: func(payload types.WebhookPayload) types.DeliveryOutcome {
			if strings.HasPrefix(payload.Content, "bad/") {
				return types.DeliveryOutcome{
					Status:   types.DeliveryStatusFailedExhausted,
					Attempts: 3,
					Err:      types.ErrDeliveryExhausted,
				}
			}
			return types.DeliveryOutcome{Status: types.DeliveryStatusDelivered, Attempts: 1, StatusCode: 204}
		},
	}
	service, source := newTestService(t, notifier, &types.Config{})
	require.NoError(t, service.Start(context.Background()))
	defer service.Stop(context.Background())

	source.events <- containerEvent("bad", types.ContainerEventKindStarted)
	source.events <- containerEvent("good", types.ContainerEventKindStarted)

	require.Eventually(t, func() bool {
		var count int64
		service.db.Model(&types.Notification{}).Count(&count)
		return count == 2
	}, 2*time.Second, 10*time.Millisecond)

	var failed types.Notification
	require.NoError(t, service.db.First(&failed, "container_id = ?", "bad").Error)
	assert.Equal(t, types.DeliveryStatusFailedExhausted, failed.Outcome)
	assert.Equal(t, 3, failed.Attempts)
	assert.Nil(t, failed.DeliveredAt)

	var delivered types.Notification
	require.NoError(t, service.db.First(&delivered, "container_id = ?", "good").Error)
	assert.Equal(t, types.DeliveryStatusDelivered, delivered.Outcome)
	assert.NotNil(t, delivered.DeliveredAt)
}

func TestServiceRestoresDedupStateFromJournal(t *testing.T) {
	notifier := &fakeNotifier{}
	service, source := newTestService(t, notifier, &types.Config{DedupWindow: time.Minute})

	seed := &types.Notification{
		ID:          "seed",
		Fingerprint: "abc/started",
		Kind:        types.ContainerEventKindStarted,
		ContainerID: "abc",
		Outcome:     types.DeliveryStatusDelivered,
		OccurredAt:  time.Now().Add(-5 * time.Second),
	}
	require.NoError(t, service.db.Create(seed).Error)

	require.NoError(t, service.Start(context.Background()))
	defer service.Stop(context.Background())

	source.events <- containerEvent("abc", types.ContainerEventKindStarted)
	source.events <- containerEvent("def", types.ContainerEventKindStarted)

	require.Eventually(t, func() bool {
		return len(notifier.calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"def/started"}, notifier.calls())
}

func TestServiceSendsLifecycleNotices(t *testing.T) {
	notifier := &fakeNotifier{}
	service, _ := newTestService(t, notifier, &types.Config{StartupNotice: true})
	require.NoError(t, service.Start(context.Background()))

	require.Eventually(t, func() bool {
		return len(notifier.calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, notifier.calls(), "notice/startup")

	require.NoError(t, service.Stop(context.Background()))
	assert.Contains(t, notifier.calls(), "notice/shutdown")
}

func TestServiceHealthTracksSourceConnection(t *testing.T) {
	notifier := &fakeNotifier{}
	service, source := newTestService(t, notifier, &types.Config{})
	require.NoError(t, service.Start(context.Background()))
	defer service.Stop(context.Background())

	require.Eventually(t, func() bool {
		return service.Health().SourceConnected
	}, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, service.Health().DisconnectedSince)

	source.setPingErr(errors.New("daemon gone"))
	close(source.events)

	require.Eventually(t, func() bool {
		health := service.Health()
		return !health.SourceConnected && health.DisconnectedSince != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServiceStopWaitsForInFlightDeliveries(t *testing.T) {
	notifier := &fakeNotifier{delay: 100 * time.Millisecond}
	service, source := newTestService(t, notifier, &types.Config{ShutdownGrace: 3 * time.Second})
	require.NoError(t, service.Start(context.Background()))

	source.events <- containerEvent("abc", types.ContainerEventKindStarted)

	require.Eventually(t, func() bool {
		return len(notifier.calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, service.Stop(context.Background()))

	assert.Equal(t, []string{"abc/started"}, notifier.calls())
	assert.EqualValues(t, 1, journalCount(t, service.db))
}

func TestServiceStopAbortsDeliveriesAfterGrace(t *testing.T) {
	notifier := &fakeNotifier{delay: 3 * time.Second}
	service, source := newTestService(t, notifier, &types.Config{ShutdownGrace: 200 * time.Millisecond})
	require.NoError(t, service.Start(context.Background()))

	source.events <- containerEvent("abc", types.ContainerEventKindStarted)

	require.Eventually(t, func() bool {
		return len(notifier.calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stoppedAt := time.Now()
	require.NoError(t, service.Stop(context.Background()))
	elapsed := time.Now().Sub(stoppedAt)

	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	var aborted types.Notification
	require.NoError(t, service.db.First(&aborted, "container_id = ?", "abc").Error)
	assert.Equal(t, types.DeliveryStatusFailedExhausted, aborted.Outcome)
	assert.Nil(t, aborted.DeliveredAt)
}

func TestServicePerformSweepPrunesOldJournalRows(t *testing.T) {
	notifier := &fakeNotifier{}
	service, _ := newTestService(t, notifier, &types.Config{})

	old := &types.Notification{
		ID:          "old",
		Fingerprint: "abc/started",
		Kind:        types.ContainerEventKindStarted,
		ContainerID: "abc",
		Outcome:     types.DeliveryStatusDelivered,
		OccurredAt:  time.Now().Add(-40 * 24 * time.Hour),
		CreatedAt:   time.Now().Add(-40 * 24 * time.Hour),
	}
	recent := &types.Notification{
		ID:          "recent",
		Fingerprint: "def/started",
		Kind:        types.ContainerEventKindStarted,
		ContainerID: "def",
		Outcome:     types.DeliveryStatusDelivered,
		OccurredAt:  time.Now(),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, service.db.Create(old).Error)
	require.NoError(t, service.db.Create(recent).Error)

	service.performSweep(context.Background())

	assert.EqualValues(t, 1, journalCount(t, service.db))
	var remaining types.Notification
	require.NoError(t, service.db.First(&remaining).Error)
	assert.Equal(t, "recent", remaining.ID)
}
