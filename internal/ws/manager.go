package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Broker is the durable pub/sub fabric course channels are bound to.
type Broker interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, routingKey string, body []byte) error
	Consume(ctx context.Context, queue string, handler func(body []byte) error) error
}

// Envelope is the wire format for messages crossing a course channel.
type Envelope struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Manager owns the live connections of this process and their channel
// subscriptions. One Manager is constructed at bootstrap and shared by every
// endpoint task; there is no package-level instance.
type Manager struct {
	broker      Broker
	queuePrefix string

	mu       sync.Mutex
	channels map[string]*channel
}

// channel tracks the local subscribers of one course topic. bindOnce
// guarantees the broker queue is declared and its consume loop started at
// most once concurrently, even when two first-subscribers race.
type channel struct {
	subscribers []Conn
	bindOnce    sync.Once
	bindErr     error
	// bound is set under the manager mutex once the broker binding
	// succeeded and the entry is eligible for teardown. Entries whose bind
	// is still in flight are never deleted by Unsubscribe.
	bound  bool
	cancel context.CancelFunc
}

func NewManager(broker Broker, queuePrefix string) *Manager {
	return &Manager{
		broker:      broker,
		queuePrefix: queuePrefix,
		channels:    make(map[string]*channel),
	}
}

// QueueName returns the broker queue bound to channelID.
func (m *Manager) QueueName(channelID string) string {
	return m.queuePrefix + channelID
}

// Subscribe registers conn under channelID, establishing the broker binding
// and consume loop on first subscription. Idempotent for an already
// subscribed connection. Subsequent subscribers reuse the existing binding.
//
// The broker bind involves network I/O, so it runs outside the mutex. After
// it completes the map entry is re-verified under the lock: a teardown that
// raced the bind leaves a different (or no) entry behind, in which case the
// registration starts over with a fresh one.
func (m *Manager) Subscribe(channelID string, conn Conn) error {
	for {
		m.mu.Lock()
		ch, ok := m.channels[channelID]
		if !ok {
			ch = &channel{}
			m.channels[channelID] = ch
		}
		m.mu.Unlock()

		ch.bindOnce.Do(func() {
			queue := m.QueueName(channelID)
			if err := m.broker.DeclareQueue(queue); err != nil {
				ch.bindErr = fmt.Errorf("bind channel %s failed: %w", channelID, err)
				return
			}
			// The consume loop serves every subscriber of the channel, so
			// its lifetime is bound to the channel, not to any one
			// connection.
			loopCtx, cancel := context.WithCancel(context.Background())
			ch.cancel = cancel
			go m.consumeLoop(loopCtx, channelID, queue)
		})
		if ch.bindErr != nil {
			m.mu.Lock()
			if cur, ok := m.channels[channelID]; ok && cur == ch && len(cur.subscribers) == 0 {
				delete(m.channels, channelID)
			}
			m.mu.Unlock()
			return ch.bindErr
		}

		m.mu.Lock()
		if cur, ok := m.channels[channelID]; !ok || cur != ch {
			// The entry was torn down while the bind was in flight. This
			// channel object is orphaned; stop its consume loop and retry.
			m.mu.Unlock()
			if ch.cancel != nil {
				ch.cancel()
			}
			continue
		}
		ch.bound = true
		for _, existing := range ch.subscribers {
			if existing == conn {
				m.mu.Unlock()
				return nil
			}
		}
		ch.subscribers = append(ch.subscribers, conn)
		m.mu.Unlock()
		return nil
	}
}

// Unsubscribe removes conn from channelID. Idempotent. When the last
// subscriber leaves, the channel entry is deleted and its consume loop
// cancelled; the durable queue itself is left declared, so re-subscription
// tolerates either broker state.
func (m *Manager) Unsubscribe(channelID string, conn Conn) {
	m.mu.Lock()
	ch, ok := m.channels[channelID]
	if !ok {
		m.mu.Unlock()
		return
	}
	for i, existing := range ch.subscribers {
		if existing == conn {
			ch.subscribers = append(ch.subscribers[:i], ch.subscribers[i+1:]...)
			break
		}
	}
	// An entry whose first bind is still in flight stays in the map even
	// when empty; the binding subscriber has yet to register itself.
	var cancel context.CancelFunc
	if len(ch.subscribers) == 0 && ch.bound {
		delete(m.channels, channelID)
		cancel = ch.cancel
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Dispatch delivers payload to every connection currently subscribed to
// channelID, in registration order. A failed send never blocks delivery to
// the remaining peers; broken connections are unsubscribed and closed after
// the fan-out completes.
func (m *Manager) Dispatch(channelID string, payload []byte) {
	m.mu.Lock()
	ch, ok := m.channels[channelID]
	if !ok {
		m.mu.Unlock()
		return
	}
	subscribers := make([]Conn, len(ch.subscribers))
	copy(subscribers, ch.subscribers)
	m.mu.Unlock()

	var broken []Conn
	for _, conn := range subscribers {
		if err := conn.WriteText(payload); err != nil {
			log.Printf("dispatch to channel %s subscriber failed: %v", channelID, err)
			broken = append(broken, conn)
		}
	}
	for _, conn := range broken {
		m.Unsubscribe(channelID, conn)
		_ = conn.Close()
	}
}

// Publish wraps message in the channel envelope and publishes it onto the
// broker queue for channelID. This is the only path by which a message
// crosses the channel, so every consumer (including other server instances)
// observes it.
func (m *Manager) Publish(ctx context.Context, channelID, message, sender string) error {
	env := Envelope{
		Sender:    sender,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal channel envelope failed: %w", err)
	}
	return m.broker.Publish(ctx, m.QueueName(channelID), body)
}

// SubscriberCount reports the live local subscribers of channelID.
func (m *Manager) SubscriberCount(channelID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return 0
	}
	return len(ch.subscribers)
}

// Close cancels every channel consume loop. Used at process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.channels))
	for id, ch := range m.channels {
		if ch.cancel != nil {
			cancels = append(cancels, ch.cancel)
		}
		delete(m.channels, id)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (m *Manager) consumeLoop(ctx context.Context, channelID, queue string) {
	for {
		err := m.broker.Consume(ctx, queue, func(body []byte) error {
			m.Dispatch(channelID, body)
			return nil
		})
		if ctx.Err() != nil {
			return
		}
		log.Printf("channel %s consume interrupted: %v", channelID, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}
