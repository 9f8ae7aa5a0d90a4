package ledgerxgo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var ErrQueueFull = errors.New("notification queue full")

var (
	_ Notifier = (*QueuedNotifier)(nil)
	_ Notifier = (*BreakerNotifier)(nil)
	_ Notifier = NopNotifier{}
)

// QueuedNotifier hands receipts to a single worker goroutine so sink latency
// never reaches the caller. When the queue is full the receipt is dropped and
// ErrQueueFull returned.
type QueuedNotifier struct {
	next    Notifier
	timeout time.Duration
	log     *zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Receipt
	done   chan struct{}
}

func NewQueuedNotifier(next Notifier, size int, log *zerolog.Logger) *QueuedNotifier {
	if size <= 0 {
		size = 1
	}
	q := &QueuedNotifier{
		next:    next,
		timeout: 30 * time.Second,
		log:     log,
		queue:   make(chan Receipt, size),
		done:    make(chan struct{}),
	}
	go q.work()
	return q
}

func (q *QueuedNotifier) Notify(ctx context.Context, rcpt Receipt) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueFull
	}
	select {
	case q.queue <- rcpt:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting receipts and waits for queued ones to be delivered.
func (q *QueuedNotifier) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.queue)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *QueuedNotifier) work() {
	defer close(q.done)
	for rcpt := range q.queue {
		q.deliver(rcpt)
	}
}

func (q *QueuedNotifier) deliver(rcpt Receipt) {
	defer func() {
		if rec := recover(); rec != nil {
			q.log.Error().
				Int64("operation", rcpt.Operation.ID.Int64()).
				Interface("panic", rec).
				Msg("notification sink panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.Notify(ctx, rcpt); err != nil {
		q.log.Err(ErrSinkFailure{OperationID: rcpt.Operation.ID.Int64(), Err: err}).
			Int64("operation", rcpt.Operation.ID.Int64()).
			Msg("notification sink failed")
	}
}

// BreakerNotifier stops calling a sink that keeps failing until it has had
// time to recover.
type BreakerNotifier struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerNotifier(next Notifier, log *zerolog.Logger) *BreakerNotifier {
	st := gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &BreakerNotifier{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

func (b *BreakerNotifier) Notify(ctx context.Context, rcpt Receipt) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Notify(ctx, rcpt)
	})
	return err
}
