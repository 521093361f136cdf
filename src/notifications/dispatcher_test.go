package notifications

import (
	"context"
	"errors"
	"eventhub/src/lib"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type recordingPublisher struct {
	mu     sync.Mutex
	bodies [][]byte
	err    error
	delay  time.Duration
	closed bool
}

func (p *recordingPublisher) Publish(ctx context.Context, body []byte) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestDispatcherPublishesMessage(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, lib.NewNullLogger())

	msg := newMessage(KindWelcome, "ada@example.com", "Ada", "Welcome to EventHub", nil)
	d.Notify(context.Background(), msg)
	require.NoError(t, d.Close())

	require.Len(t, pub.bodies, 1)
	body := string(pub.bodies[0])
	assert.Equal(t, "welcome", gjson.Get(body, "kind").String())
	assert.Equal(t, "ada@example.com", gjson.Get(body, "to").String())
	assert.Equal(t, msg.ID, gjson.Get(body, "id").String())
	assert.True(t, pub.closed)
}

func TestDispatcherDoesNotBlockCaller(t *testing.T) {
	pub := &recordingPublisher{delay: 200 * time.Millisecond}
	d := NewDispatcher(pub, lib.NewNullLogger())

	start := time.Now()
	d.Notify(context.Background(), newMessage(KindWelcome, "ada@example.com", "Ada", "hi", nil))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	require.NoError(t, d.Close())
	assert.Len(t, pub.bodies, 1)
}

func TestDispatcherSurvivesCancelledContext(t *testing.T) {
	pub := &recordingPublisher{delay: 20 * time.Millisecond}
	d := NewDispatcher(pub, lib.NewNullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, newMessage(KindWelcome, "ada@example.com", "Ada", "hi", nil))
	cancel()

	require.NoError(t, d.Close())
	assert.Len(t, pub.bodies, 1)
}

func TestDispatcherSwallowsPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(pub, lib.NewNullLogger())

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), newMessage(KindWelcome, "ada@example.com", "Ada", "hi", nil))
	})
	require.NoError(t, d.Close())
	assert.Empty(t, pub.bodies)
}

func TestDispatcherSkipsMissingRecipient(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, lib.NewNullLogger())

	d.Notify(context.Background(), newMessage(KindWelcome, "", "", "hi", nil))
	require.NoError(t, d.Close())
	assert.Empty(t, pub.bodies)
}

func TestLocalQueue(t *testing.T) {
	q := NewLocalQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, []byte(`{"n":1}`)))
	require.NoError(t, q.Publish(ctx, []byte(`{"n":2}`)))
	assert.ErrorIs(t, q.Publish(ctx, []byte(`{"n":3}`)), ErrQueueFull)

	require.NoError(t, q.Close())
	assert.Error(t, q.Publish(ctx, []byte(`{"n":4}`)))

	var got []int64
	q.Consume(ctx, func(body string) error {
		got = append(got, gjson.Get(body, "n").Int())
		return nil
	})
	assert.Equal(t, []int64{1, 2}, got)
}

func TestLocalQueueConsumeStopsOnCancel(t *testing.T) {
	q := NewLocalQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Consume(ctx, func(string) error { return nil })
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
