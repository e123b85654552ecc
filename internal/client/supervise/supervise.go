// Package supervise isolates a unit of work so that its failure, panic
// included, ends up in a fallback instead of taking the process down.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic wraps a recovered panic value.
var ErrPanic = errors.New("panic")

// PanicError carries the recovered value and the goroutine stack.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

func (e *PanicError) Unwrap() error { return ErrPanic }

// Run executes task in its own goroutine and waits for it. A returned error
// or a panic is handed to fallback (when non-nil) and returned. If ctx ends
// first Run returns ctx.Err() without waiting for task; task is expected to
// watch ctx itself.
func Run(ctx context.Context, task func(context.Context) error, fallback func(error)) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		done <- task(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil && fallback != nil {
		fallback(err)
	}
	return err
}

// Go is Run without waiting: the outcome only reaches fallback.
func Go(ctx context.Context, task func(context.Context) error, fallback func(error)) {
	go func() { _ = Run(ctx, task, fallback) }()
}
