// Package async holds the poll-able completion handles returned by input and
// timing collaborators. Tasks check them once per tick and never block on them.
package async

import (
	"context"
	"errors"
	"sync"
)

var ErrNotReady = errors.New("async: not ready")

// Void is the value type of futures that only signal completion.
type Void = struct{}

// Pollable is the type-erased view a task keeps in its pending slot.
type Pollable interface {
	Ready() bool
}

// Future is completed at most once, from any goroutine.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

func Rejected[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Complete stores the result and reports whether this call won.
func (f *Future[T]) Complete(v T, err error) bool {
	won := false
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
		won = true
	})
	return won
}

func (f *Future[T]) Resolve(v T) bool { return f.Complete(v, nil) }

func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.Complete(zero, err)
}

func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result returns ErrNotReady until the future completes.
func (f *Future[T]) Result() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, ErrNotReady
	}
	return f.val, f.err
}

// Wait blocks until completion or ctx cancellation. Drivers and tests only.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Succeeded reports a completed bool future that resolved true without error.
func Succeeded(f *Future[bool]) bool {
	v, err := f.Result()
	return err == nil && v
}
