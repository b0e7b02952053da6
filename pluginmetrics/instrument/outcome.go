package instrument

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoResult is returned by Await when an Awaitable's channel closes without a value.
var ErrNoResult = errors.New("awaitable closed without a result")

// Outcome is the sealed set of shapes an operation result can take.
type Outcome[T any] interface {
	isOutcome(T)
}

// Result is what an Awaitable eventually delivers.
type Result[T any] struct {
	Value T
	Err   error
}

// Immediate is a value that is already available.
type Immediate[T any] struct {
	Value T
}

// Awaitable delivers at most one Result on Done and then closes it.
type Awaitable[T any] struct {
	Done <-chan Result[T]
}

// Thenable is a completion-only handle.
type Thenable[T any] interface {
	Then(onComplete func(T))
}

// CallbackOnly wraps a Thenable whose failures are not observable.
type CallbackOnly[T any] struct {
	Handle Thenable[T]
}

func (Immediate[T]) isOutcome(T)    {}
func (Awaitable[T]) isOutcome(T)    {}
func (CallbackOnly[T]) isOutcome(T) {}

// Await blocks until a delivers its Result or ctx is done.
func Await[T any](ctx context.Context, a Awaitable[T]) (T, error) {
	var zero T

	select {
	case res, ok := <-a.Done:
		if !ok {
			return zero, ErrNoResult
		}

		return res.Value, res.Err
	case <-ctx.Done():
		return zero, fmt.Errorf("await: %w", ctx.Err())
	}
}

// Deferred is a Thenable completed by calling Complete. Callbacks registered
// after completion run immediately.
type Deferred[T any] struct {
	mu        sync.Mutex
	done      bool
	value     T
	callbacks []func(T)
}

// NewDeferred returns an incomplete Deferred.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{}
}

// Then implements Thenable.
func (d *Deferred[T]) Then(onComplete func(T)) {
	if onComplete == nil {
		return
	}

	d.mu.Lock()
	if !d.done {
		d.callbacks = append(d.callbacks, onComplete)
		d.mu.Unlock()

		return
	}

	value := d.value
	d.mu.Unlock()

	onComplete(value)
}

// Complete resolves d with value and runs pending callbacks. Later calls are ignored.
func (d *Deferred[T]) Complete(value T) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()

		return
	}

	d.done = true
	d.value = value
	callbacks := d.callbacks
	d.callbacks = nil
	d.mu.Unlock()

	for _, cb := range callbacks {
		cb(value)
	}
}
