package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/mailrelay/internal/pkg/goroutine"
)

var (
	// ErrQueueFull is returned when the buffer has no free slot.
	ErrQueueFull = errors.New("mail: queue is full")
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("mail: queue is closed")
	// ErrQueueNotStarted is returned when workers could not be scheduled.
	ErrQueueNotStarted = errors.New("mail: queue workers not started")
)

type queueItem struct {
	ctx    context.Context
	msg    Message
	result chan error
}

// Queue sends messages on background workers.
//
// Each message gets exactly one attempt; failures are logged and reported on
// the channel returned by Enqueue.
type Queue struct {
	mail    Mail
	items   chan queueItem
	workers int

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding at most size pending messages, drained by workers.
func NewQueue(m Mail, size, workers int) *Queue {
	if size < 1 {
		size = 100
	}
	if workers < 1 {
		workers = 1
	}

	return &Queue{
		mail:    m,
		items:   make(chan queueItem, size),
		workers: workers,
	}
}

// Start schedules the workers on gm. They exit once Close has been called and
// the buffer is drained, so gm.Wait joins them.
func (q *Queue) Start(ctx context.Context, gm *goroutine.Manager) error {
	for i := range q.workers {
		if !gm.Go(ctx, q.work) {
			return fmt.Errorf("%w: %d of %d running", ErrQueueNotStarted, i, q.workers)
		}
	}

	slog.InfoContext(ctx, "mail queue started", "workers", q.workers, "capacity", cap(q.items))
	return nil
}

// Enqueue hands msg to a worker without waiting for delivery.
//
// The returned channel receives the send result once and is then closed. The
// send runs on a context detached from ctx's cancellation.
func (q *Queue) Enqueue(ctx context.Context, msg Message) (<-chan error, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	item := queueItem{
		ctx:    context.WithoutCancel(ctx),
		msg:    msg,
		result: make(chan error, 1),
	}

	select {
	case q.items <- item:
		return item.result, nil
	default:
		slog.WarnContext(ctx, "mail queue is full, dropping message", "capacity", cap(q.items))
		return nil, ErrQueueFull
	}
}

// Len returns the number of messages waiting for a worker.
func (q *Queue) Len() int {
	return len(q.items)
}

// Close stops accepting messages. Messages already queued are still sent.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.items)
	}
	return nil
}

func (q *Queue) work(context.Context) error {
	for item := range q.items {
		err := q.mail.Send(item.ctx, item.msg)
		if err != nil {
			slog.ErrorContext(item.ctx, "queued mail failed", "error", err)
		} else {
			slog.InfoContext(item.ctx, "queued mail sent")
		}
		item.result <- err
		close(item.result)
	}
	return nil
}
