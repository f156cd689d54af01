// Package views holds the page presenters. Each one loads its data through
// the API client, tracks the request in an Async and reports where the
// browser should go next.
package views

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when a view is asked to start a request while one is
// still outstanding.
var ErrBusy = errors.New("a request is already in progress")

// Phase is the lifecycle of one view request.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Async tracks a single request: idle -> loading -> success or error.
// The zero value is idle.
type Async[T any] struct {
	mu    sync.Mutex
	phase Phase
	value T
	err   error
}

// Run executes fn unless a previous run is still loading. The value of a
// failed run is discarded; the last successful value is kept.
func (a *Async[T]) Run(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	a.mu.Lock()
	if a.phase == PhaseLoading {
		a.mu.Unlock()
		var zero T
		return zero, ErrBusy
	}
	a.phase = PhaseLoading
	a.err = nil
	a.mu.Unlock()

	v, err := fn(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.phase = PhaseError
		a.err = err
		return v, err
	}
	a.phase = PhaseSuccess
	a.value = v
	return v, nil
}

// Fail moves to the error phase without running a request, used for
// validation that happens before any call is made.
func (a *Async[T]) Fail(err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phase = PhaseError
	a.err = err
	return err
}

// Set stores v as a successful result.
func (a *Async[T]) Set(v T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phase = PhaseSuccess
	a.value = v
	a.err = nil
}

// Reset returns to idle.
func (a *Async[T]) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	a.phase = PhaseIdle
	a.value = zero
	a.err = nil
}

func (a *Async[T]) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == "" {
		return PhaseIdle
	}
	return a.phase
}

func (a *Async[T]) Value() T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

func (a *Async[T]) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Loading reports whether a request is outstanding.
func (a *Async[T]) Loading() bool {
	return a.Phase() == PhaseLoading
}
