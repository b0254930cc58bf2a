package sequence

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"tempo/internal/logging"
)

var errStale = errors.New("computation started before reset")

type future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

func (f *future[T]) complete(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Async prefetches the values of a generator in the background while keeping
// their order: the value after the one being returned is computed only once
// the current one is resolved, and callers always receive values in
// generation order.
//
// When a background computation fails, the value is computed synchronously
// instead. Errors are never returned to the caller.
type Async[T any] struct {
	gen    Generator[T]
	logger *zap.Logger

	// mu serializes calls into gen.
	mu sync.Mutex
	// epoch invalidates computations scheduled before a reset.
	epoch   atomic.Uint64
	pending atomic.Pointer[future[T]]
}

// NewAsync wraps gen. Call Reset before the first Next to start prefetching.
func NewAsync[T any](gen Generator[T]) *Async[T] {
	return &Async[T]{gen: gen, logger: logging.Named("sequence")}
}

// Next returns the next value.
func (a *Async[T]) Next() T {
	epoch := a.epoch.Load()
	next := newFuture[T]()
	prev := a.pending.Swap(next)

	if prev == nil {
		v := a.computeSync()
		go func() { next.complete(a.compute(epoch)) }()
		return v
	}

	// a failed value is recomputed before the one after it
	fallback := make(chan T, 1)
	go func() {
		<-prev.done
		if prev.err != nil {
			fallback <- a.computeSync()
		}
		next.complete(a.compute(epoch))
	}()

	<-prev.done
	if prev.err != nil {
		a.logger.Debug("Prefetch failed, computing synchronously", zap.Error(prev.err))
		return <-fallback
	}
	return prev.val
}

// Reset resets the generator and starts computing its first value.
func (a *Async[T]) Reset() error {
	a.mu.Lock()
	epoch := a.epoch.Add(1)
	err := a.gen.Reset()
	a.mu.Unlock()
	if err != nil {
		return err
	}

	first := newFuture[T]()
	a.pending.Store(first)
	go func() { first.complete(a.compute(epoch)) }()
	return nil
}

// PublishNext implements Sequence.
func (a *Async[T]) PublishNext(id string, values map[string]string) {
	values[id] = fmt.Sprint(a.Next())
}

func (a *Async[T]) compute(epoch uint64) (v T, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.epoch.Load() != epoch {
		return v, errStale
	}
	return a.call()
}

func (a *Async[T]) computeSync() T {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.call()
	if err != nil {
		a.logger.Warn("Sequence failed to compute a value", zap.Error(err))
	}
	return v
}

// call invokes the generator with mu held.
func (a *Async[T]) call() (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sequence panicked: %v", p)
		}
	}()
	return a.gen.Next()
}
