package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/report"
)

const subscriberBuffer = 16

// Hub receives finished reports, keeps the latest one and broadcasts each
// report to all subscribers.
type Hub struct {
	input       <-chan *report.Report
	log         *zap.SugaredLogger
	mu          sync.RWMutex
	latest      *report.Report
	subscribers map[chan *report.Report]struct{}
	dropped     int64
}

// New creates a Hub that reads from the input channel.
func New(input <-chan *report.Report, log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		input:       input,
		log:         log,
		subscribers: make(map[chan *report.Report]struct{}),
	}
}

// Subscribe returns a buffered channel that will receive every new report.
// The latest report, if any, is delivered first.
func (h *Hub) Subscribe() <-chan *report.Report {
	ch := make(chan *report.Report, subscriberBuffer)
	h.mu.Lock()
	if h.latest != nil {
		ch <- h.latest
	}
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (h *Hub) Unsubscribe(ch <-chan *report.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		if sub == ch {
			delete(h.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Latest returns the most recent report, or nil before the first run.
func (h *Hub) Latest() *report.Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Dropped returns the total number of reports dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start begins reading from the input channel and broadcasting.
// Blocks until the context is cancelled or the input channel is closed.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case rep, ok := <-h.input:
			if !ok {
				return
			}
			h.broadcast(rep)
		}
	}
}

// broadcast records rep as latest and sends it to all subscribers.
// If a subscriber's channel is full, the report is dropped for that subscriber.
func (h *Hub) broadcast(rep *report.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = rep
	for ch := range h.subscribers {
		select {
		case ch <- rep:
		default:
			h.dropped++
			h.log.Warnw("Dropped report for slow consumer", "total_dropped", h.dropped)
		}
	}
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, ch)
	}
}
