package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opencomm/shrike/internal/domain"
)

// ChannelBus implements domain.EventBus using Go channels.
// Single-process only; suitable for the Community tier.
type ChannelBus struct {
	mu          sync.RWMutex
	subscribers map[string][]*channelSubscription
	bufferSize  int
	closed      bool
}

// NewChannelBus creates an in-process event bus.
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &ChannelBus{
		subscribers: make(map[string][]*channelSubscription),
		bufferSize:  bufferSize,
	}
}

// Publish delivers the payload to every subscriber of the topic. Delivery
// is non-blocking; a subscriber with a full buffer drops the message and
// the drop is logged. The screening hot path must never stall on fan-out.
func (b *ChannelBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return domain.ErrBusClosed
	}

	msg := &domain.Message{
		ID:        uuid.New().String(),
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UnixNano(),
	}

	for _, sub := range b.subscribers[topic] {
		select {
		case sub.ch <- msg:
		default:
			slog.Warn("event dropped, subscriber buffer full",
				"topic", topic,
				"message_id", msg.ID)
		}
	}
	return nil
}

// Subscribe registers a handler for a topic. Each subscriber gets its own
// buffered channel and goroutine.
func (b *ChannelBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, domain.ErrBusClosed
	}

	sub := &channelSubscription{
		bus:   b,
		topic: topic,
		ch:    make(chan *domain.Message, b.bufferSize),
		done:  make(chan struct{}),
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	go sub.run(handler)

	return sub, nil
}

// Ping always succeeds for an open in-process bus.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return domain.ErrBusClosed
	}
	return nil
}

// Close stops all subscriptions.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.done)
		}
	}
	b.subscribers = make(map[string][]*channelSubscription)
	return nil
}

type channelSubscription struct {
	bus   *ChannelBus
	topic string
	ch    chan *domain.Message
	done  chan struct{}
}

func (s *channelSubscription) run(handler domain.MessageHandler) {
	for {
		select {
		case msg := <-s.ch:
			if err := handler(context.Background(), msg); err != nil {
				slog.Error("event handler failed",
					"topic", s.topic,
					"message_id", msg.ID,
					"error", err)
			}
		case <-s.done:
			return
		}
	}
}

func (s *channelSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.subscribers[s.topic]
	for i, sub := range subs {
		if sub == s {
			s.bus.subscribers[s.topic] = append(subs[:i], subs[i+1:]...)
			close(s.done)
			break
		}
	}
	return nil
}

func (s *channelSubscription) Topic() string {
	return s.topic
}
