package eventbus

import (
	"context"
	"github.com/nrednav/cuid2"
	"github.com/sourcegraph/conc/pool"
	"sync"
)

const publishBuffer = 64

// Bus carries pipeline messages from the monitor workers to their
// subscribers (journal recorder, status metrics). Publishing keeps the
// order of events, subscribers see one event at a time.
type Bus[T any] struct {
	eventsChan    chan T
	handlers      map[string]func(context.Context, T)
	handlersMutex sync.RWMutex
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{
		eventsChan: make(chan T, publishBuffer),
		handlers:   make(map[string]func(context.Context, T)),
	}
}

// PublishEvent blocks once the buffer is full, which only happens when the
// dispatcher cannot keep up with the delivery workers.
func (b *Bus[T]) PublishEvent(event T) {
	b.eventsChan <- event
}

func (b *Bus[T]) SubscribeToEvents(handler func(ctx context.Context, event T)) func() {
	b.handlersMutex.Lock()
	defer b.handlersMutex.Unlock()

	id := cuid2.Generate()
	b.handlers[id] = handler

	return func() {
		b.handlersMutex.Lock()
		defer b.handlersMutex.Unlock()

		delete(b.handlers, id)
	}
}

// StartDispatcher delivers published events until ctx is cancelled, then
// flushes whatever is still buffered so late outcomes reach the journal.
func (b *Bus[T]) StartDispatcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-b.eventsChan:
					b.dispatchEvent(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventsChan:
			b.dispatchEvent(ctx, event)
		}
	}
}

func (b *Bus[T]) dispatchEvent(ctx context.Context, event T) {
	b.handlersMutex.RLock()
	defer b.handlersMutex.RUnlock()

	p := pool.New().WithMaxGoroutines(4)
	for _, handler := range b.handlers {
		p.Go(func() {
			handler(ctx, event)
		})
	}
	p.Wait()
}
