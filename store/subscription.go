package store

import (
	"context"
	"sync"
)

// changeFeed signals that the watched data may have changed. A Mongo
// *ChangeStream satisfies it directly.
type changeFeed interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// Subscription delivers snapshots of a remote query: one when it starts and
// a fresh one after every change. A consumer that falls behind only ever
// receives the latest snapshot.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func subscribe[T any](parent context.Context, feed changeFeed, load func(context.Context) (T, error)) *Subscription[T] {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx, feed, load)
	return s
}

func (s *Subscription[T]) run(ctx context.Context, feed changeFeed, load func(context.Context) (T, error)) {
	defer close(s.done)
	defer close(s.updates)
	defer feed.Close(context.Background())

	for {
		snapshot, err := load(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.setErr(err)
			}
			return
		}
		s.publish(snapshot)

		if !feed.Next(ctx) {
			if err := feed.Err(); err != nil && ctx.Err() == nil {
				s.setErr(err)
			}
			return
		}
	}
}

// publish replaces any snapshot the consumer has not read yet. Only the
// worker sends, so the send after draining never blocks.
func (s *Subscription[T]) publish(v T) {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- v
}

func (s *Subscription[T]) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Updates is closed when the subscription ends, either through Close or a
// failed reload; Err tells the two apart.
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Err returns the error that ended the subscription, if any.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the worker and waits for it to release the change feed. It is
// safe to call more than once.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// Combine publishes merge(a, b) once both subscriptions have delivered a
// snapshot and again whenever either changes. It ends when either input ends,
// taking that input's error, and closes both inputs when it stops.
func Combine[A, B, T any](a *Subscription[A], b *Subscription[B], merge func(A, B) T) *Subscription[T] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)
		defer b.Close()
		defer a.Close()

		var (
			lastA        A
			lastB        B
			haveA, haveB bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-a.Updates():
				if !ok {
					s.setErr(a.Err())
					return
				}
				lastA, haveA = v, true
			case v, ok := <-b.Updates():
				if !ok {
					s.setErr(b.Err())
					return
				}
				lastB, haveB = v, true
			}
			if haveA && haveB {
				s.publish(merge(lastA, lastB))
			}
		}
	}()
	return s
}
