package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sdnyco/ichi/internal/events"
	"github.com/sdnyco/ichi/pkg/logger"
)

// EventRelay 本地异步投递已提交的 ping 事件；队列满时丢弃并告警
type EventRelay struct {
	pub     events.Publisher
	ch      chan events.PingSent
	timeout time.Duration
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool // 停止后 Enqueue 一律丢弃
}

// NewEventRelay returns nil when pub is nil; a nil relay drops everything silently.
func NewEventRelay(pub events.Publisher, queueSize int) *EventRelay {
	if pub == nil {
		return nil
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &EventRelay{pub: pub, ch: make(chan events.PingSent, queueSize), timeout: 5 * time.Second}
}

// Start launches workers and returns a stop function that waits for the
// queue to drain or ctx to end, whichever comes first.
func (r *EventRelay) Start(workers int) func(context.Context) error {
	if r == nil {
		return func(context.Context) error { return nil }
	}
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case ev := <-r.ch:
					r.publish(ev)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()

		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for len(r.ch) > 0 {
			select {
			case <-ctx.Done():
				close(stopCh)
				return ctx.Err()
			case <-tick.C:
			}
		}
		close(stopCh)
		r.wg.Wait()
		return nil
	}
}

func (r *EventRelay) publish(ev events.PingSent) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.pub.PublishPingSent(ctx, ev); err != nil {
		logger.Warn("publish ping.sent failed", zap.String("event", ev.EventID), zap.Error(err))
	}
}

func (r *EventRelay) Enqueue(ev events.PingSent) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		logger.Warn("event relay stopped, drop", zap.String("event", ev.EventID), zap.String("place", ev.PlaceID))
		return
	}
	select {
	case r.ch <- ev:
	default:
		logger.Warn("event relay queue full, drop", zap.String("event", ev.EventID), zap.String("place", ev.PlaceID))
	}
}

// QueueLen 返回当前队列长度（采样值）
func (r *EventRelay) QueueLen() int {
	if r == nil {
		return 0
	}
	return len(r.ch)
}
