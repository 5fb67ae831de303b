package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pothiers/cadence/internal/model"
	"github.com/pothiers/cadence/internal/report"
)

func TestHubBroadcast(t *testing.T) {
	input := make(chan *report.Report, 10)
	h := New(input, nil)

	sub1 := h.Subscribe()
	sub2 := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Start(ctx)

	rep := report.New(model.Quality{Records: 7}, nil)
	input <- rep

	for i, sub := range []<-chan *report.Report{sub1, sub2} {
		select {
		case got := <-sub:
			assert.Same(t, rep, got, "sub%d", i+1)
		case <-time.After(time.Second):
			t.Fatalf("sub%d: timed out", i+1)
		}
	}
	assert.Same(t, rep, h.Latest())
}

func TestHubLatestDeliveredOnSubscribe(t *testing.T) {
	input := make(chan *report.Report, 1)
	h := New(input, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	rep := report.New(model.Quality{Records: 1}, nil)
	input <- rep
	require.Eventually(t, func() bool { return h.Latest() != nil }, time.Second, 10*time.Millisecond)

	sub := h.Subscribe()
	assert.Same(t, rep, <-sub)

	h.Unsubscribe(sub)
	_, open := <-sub
	assert.False(t, open)
}

func TestHubSlowConsumer(t *testing.T) {
	input := make(chan *report.Report, 10)
	h := New(input, nil)

	// Subscribe but never read: simulates a slow consumer.
	_ = h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Start(ctx)

	for i := 0; i < subscriberBuffer+5; i++ {
		input <- report.New(model.Quality{Records: i}, nil)
	}

	require.Eventually(t, func() bool { return h.Dropped() == 5 }, 2*time.Second, 10*time.Millisecond)
}
