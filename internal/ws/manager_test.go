package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu         sync.Mutex
	declared   []string
	published  map[string][][]byte
	declareErr error

	// declareEntered/declareGate let a test hold a declare mid-flight to
	// exercise interleavings around the broker round-trip.
	declareEntered chan struct{}
	declareGate    chan struct{}

	deliveries chan []byte
	consumeRet chan struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		published:  make(map[string][][]byte),
		deliveries: make(chan []byte, 16),
		consumeRet: make(chan struct{}, 16),
	}
}

func (b *fakeBroker) DeclareQueue(name string) error {
	if b.declareEntered != nil {
		b.declareEntered <- struct{}{}
	}
	if b.declareGate != nil {
		<-b.declareGate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declareErr != nil {
		return b.declareErr
	}
	b.declared = append(b.declared, name)
	return nil
}

func (b *fakeBroker) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[routingKey] = append(b.published[routingKey], body)
	return nil
}

func (b *fakeBroker) Consume(ctx context.Context, queue string, handler func(body []byte) error) error {
	defer func() {
		select {
		case b.consumeRet <- struct{}{}:
		default:
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case body := <-b.deliveries:
			_ = handler(body)
		}
	}
}

func (b *fakeBroker) declareCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.declared)
}

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteText(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestSubscribeBindsQueueOnce(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, m.Subscribe("7", &fakeConn{}))
	}

	assert.Equal(t, 1, broker.declareCount())
	assert.Equal(t, []string{"course_chat_7"}, broker.declared)
	assert.Equal(t, 4, m.SubscriberCount("7"))
}

func TestSubscribeIdempotentPerConnection(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	conn := &fakeConn{}
	require.NoError(t, m.Subscribe("7", conn))
	require.NoError(t, m.Subscribe("7", conn))

	assert.Equal(t, 1, m.SubscriberCount("7"))
}

func TestSubscribeRetriesAfterBindFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.declareErr = errors.New("broker down")
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	conn := &fakeConn{}
	require.Error(t, m.Subscribe("7", conn))
	assert.Equal(t, 0, m.SubscriberCount("7"))

	broker.mu.Lock()
	broker.declareErr = nil
	broker.mu.Unlock()

	require.NoError(t, m.Subscribe("7", conn))
	assert.Equal(t, 1, m.SubscriberCount("7"))
}

func TestDispatchFansOutToAllSubscribers(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	conns := []*fakeConn{{}, {}, {}}
	for _, c := range conns {
		require.NoError(t, m.Subscribe("7", c))
	}

	m.Dispatch("7", []byte(`{"message":"hi"}`))

	for _, c := range conns {
		require.Equal(t, 1, c.frameCount())
		assert.Equal(t, `{"message":"hi"}`, string(c.frames[0]))
	}
}

func TestDispatchDropsBrokenConnection(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	healthy := &fakeConn{}
	broken := &fakeConn{writeErr: errors.New("peer gone")}
	other := &fakeConn{}
	require.NoError(t, m.Subscribe("7", healthy))
	require.NoError(t, m.Subscribe("7", broken))
	require.NoError(t, m.Subscribe("7", other))

	m.Dispatch("7", []byte("payload"))

	assert.Equal(t, 2, m.SubscriberCount("7"))
	assert.True(t, broken.closed)
	assert.Equal(t, 1, healthy.frameCount())
	assert.Equal(t, 1, other.frameCount())
}

func TestUnsubscribeLastStopsConsumeLoop(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	conn := &fakeConn{}
	require.NoError(t, m.Subscribe("7", conn))
	m.Unsubscribe("7", conn)

	assert.Equal(t, 0, m.SubscriberCount("7"))
	select {
	case <-broker.consumeRet:
	case <-time.After(2 * time.Second):
		t.Fatal("consume loop did not stop after last unsubscribe")
	}
}

func TestUnsubscribeUnknownConnectionIsNoop(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	m.Unsubscribe("7", &fakeConn{})

	conn := &fakeConn{}
	require.NoError(t, m.Subscribe("7", conn))
	m.Unsubscribe("7", &fakeConn{})
	assert.Equal(t, 1, m.SubscriberCount("7"))
}

func TestUnsubscribeDuringFirstBindKeepsSubscriber(t *testing.T) {
	broker := newFakeBroker()
	broker.declareEntered = make(chan struct{}, 1)
	broker.declareGate = make(chan struct{})
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	conn := &fakeConn{}
	done := make(chan error, 1)
	go func() { done <- m.Subscribe("7", conn) }()

	// While the first subscriber is inside the broker declare, a teardown
	// for a connection that was never registered must not remove the
	// in-flight channel entry.
	<-broker.declareEntered
	m.Unsubscribe("7", &fakeConn{})
	close(broker.declareGate)

	require.NoError(t, <-done)
	assert.Equal(t, 1, m.SubscriberCount("7"))

	m.Dispatch("7", []byte("payload"))
	require.Equal(t, 1, conn.frameCount())
}

func TestConcurrentSubscribeUnsubscribeKeepsSetConsistent(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			assert.NoError(t, m.Subscribe("7", conn))
			m.Unsubscribe("7", conn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, m.SubscriberCount("7"))
}

func TestPublishWrapsMessageInEnvelope(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	require.NoError(t, m.Publish(context.Background(), "7", "hello class", "alice"))

	broker.mu.Lock()
	bodies := broker.published["course_chat_7"]
	broker.mu.Unlock()
	require.Len(t, bodies, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(bodies[0], &env))
	assert.Equal(t, "alice", env.Sender)
	assert.Equal(t, "hello class", env.Message)
	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
}

func TestBrokerDeliveryReachesSubscribers(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, "course_chat_")
	defer m.Close()

	conn := &fakeConn{}
	require.NoError(t, m.Subscribe("7", conn))

	broker.deliveries <- []byte(`{"sender":"bob","message":"yo"}`)

	require.Eventually(t, func() bool {
		return conn.frameCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, `{"sender":"bob","message":"yo"}`, string(conn.frames[0]))
}
