package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnyco/ichi/internal/events"
)

type fakePublisher struct {
	mu  sync.Mutex
	got []events.PingSent
}

func (p *fakePublisher) PublishPingSent(_ context.Context, ev events.PingSent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ev)
	return nil
}

func (p *fakePublisher) all() []events.PingSent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.PingSent(nil), p.got...)
}

func TestEventRelay_DrainsOnStop(t *testing.T) {
	pub := &fakePublisher{}
	r := NewEventRelay(pub, 16)
	stop := r.Start(2)

	for _, id := range []string{"e1", "e2", "e3"} {
		r.Enqueue(events.PingSent{EventID: id})
	}
	require.NoError(t, stop(context.Background()))

	ids := make([]string, 0, 3)
	for _, ev := range pub.all() {
		ids = append(ids, ev.EventID)
	}
	assert.ElementsMatch(t, []string{"e1", "e2", "e3"}, ids)
	assert.Equal(t, 0, r.QueueLen())
}

func TestEventRelay_DropsWhenFull(t *testing.T) {
	r := NewEventRelay(&fakePublisher{}, 1)

	r.Enqueue(events.PingSent{EventID: "e1"})
	r.Enqueue(events.PingSent{EventID: "e2"})
	assert.Equal(t, 1, r.QueueLen())
}

func TestEventRelay_DropsAfterStop(t *testing.T) {
	pub := &fakePublisher{}
	r := NewEventRelay(pub, 4)
	stop := r.Start(1)

	r.Enqueue(events.PingSent{EventID: "e1"})
	require.NoError(t, stop(context.Background()))

	r.Enqueue(events.PingSent{EventID: "late"})
	assert.Equal(t, 0, r.QueueLen())
	require.Len(t, pub.all(), 1)
	assert.Equal(t, "e1", pub.all()[0].EventID)
}

func TestEventRelay_Nil(t *testing.T) {
	r := NewEventRelay(nil, 4)
	assert.Nil(t, r)
	assert.NotPanics(t, func() { r.Enqueue(events.PingSent{}) })
	assert.Equal(t, 0, r.QueueLen())
	assert.NoError(t, r.Start(1)(context.Background()))
}
