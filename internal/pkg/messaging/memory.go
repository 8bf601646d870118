package messaging

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ErrMemoryFull is returned when a group queue has no free slot.
var ErrMemoryFull = errors.New("messaging: memory queue is full")

// Memory is an in-process bus. Each consumer group on a topic receives every
// message once; consumers in the same group share it.
type Memory struct {
	buffer int
	seq    atomic.Uint64

	mu     sync.Mutex
	groups map[string]map[string]chan Message
	closed bool
}

// NewMemory returns a bus whose group queues hold buffer messages.
func NewMemory(buffer int) *Memory {
	if buffer < 1 {
		buffer = 64
	}
	return &Memory{buffer: buffer, groups: map[string]map[string]chan Message{}}
}

// Publish copies msg to every group subscribed to topic. Messages published
// before any consumer exists are dropped.
func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	out := Message{
		ID:        strconv.FormatUint(m.seq.Add(1), 10),
		Topic:     topic,
		Body:      append([]byte(nil), msg.Body...),
		Headers:   msg.Headers,
		Timestamp: time.Now(),
	}
	for _, ch := range m.groups[topic] {
		select {
		case ch <- out:
		default:
			return ErrMemoryFull
		}
	}
	return nil
}

// Consume delivers messages for the group until ctx is done or the bus is
// closed. Messages already buffered when ctx is done are still delivered, and
// handlers run on a context that ignores ctx's cancellation.
func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)

	ch, err := m.subscribe(topic, co.group)
	if err != nil {
		return err
	}

	hctx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					drain(hctx, ch, handler)
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					_ = deliver(hctx, "memory", handler, msg)
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

// drain delivers what is left in ch without waiting for more.
func drain(ctx context.Context, ch <-chan Message, handler Handler) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = deliver(ctx, "memory", handler, msg)
		default:
			return
		}
	}
}

func (m *Memory) subscribe(topic, group string) (chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.groups[topic] == nil {
		m.groups[topic] = map[string]chan Message{}
	}
	ch, ok := m.groups[topic][group]
	if !ok {
		ch = make(chan Message, m.buffer)
		m.groups[topic][group] = ch
	}
	return ch, nil
}

// Close stops consumers and rejects further publishes.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, groups := range m.groups {
		for _, ch := range groups {
			close(ch)
		}
	}
	return nil
}
