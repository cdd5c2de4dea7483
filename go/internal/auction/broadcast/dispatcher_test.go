package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	seqs   []uint64
	block  chan struct{}
	failOn uint64
}

func (r *recorder) Publish(_ context.Context, _ string, event events.Envelope) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, event.Sequence)
	if event.Sequence == r.failOn {
		return errors.New("sink failure")
	}
	return nil
}

func (r *recorder) sequences() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seqs...)
}

func envelope(seq uint64) events.Envelope {
	return events.Envelope{EventType: events.TypeBidPlaced, AuctionID: uuid.New(), Sequence: seq}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &recorder{failOn: 3}
	d := NewDispatcher(sink, DispatcherConfig{Name: "test", BufferSize: 16})

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, d.Publish(context.Background(), "auction.x", envelope(i)))
	}
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, sink.sequences(), "a failing event does not stop later ones")
}

func TestDispatcherFailsFastWhenFull(t *testing.T) {
	sink := &recorder{block: make(chan struct{})}
	d := NewDispatcher(sink, DispatcherConfig{Name: "test", BufferSize: 1})

	// first event is picked up by the worker and blocks there; the second fills the buffer
	require.NoError(t, d.Publish(context.Background(), "t", envelope(1)))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Publish(context.Background(), "t", envelope(2)))

	err := d.Publish(context.Background(), "t", envelope(3))
	assert.ErrorIs(t, err, ErrBufferFull)

	close(sink.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, []uint64{1, 2}, sink.sequences())

	assert.ErrorIs(t, d.Publish(context.Background(), "t", envelope(4)), ErrClosed)
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recorder{}
	failing := GatewayFunc(func(context.Context, string, events.Envelope) error { return errors.New("down") })

	err := Multi{failing, ok}.Publish(context.Background(), "t", envelope(9))
	assert.Error(t, err)
	assert.Equal(t, []uint64{9}, ok.sequences(), "later sinks still receive the event")
}
