package pipeline

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrGenerateCanceled is reported by Generate when its context is done
	ErrGenerateCanceled = errors.New("generate canceled")
	// ErrSinkCanceled is returned by Sink when its context is done
	ErrSinkCanceled = errors.New("sink canceled")
)

type (
	// generateFunc is used in Generate to produce values for the output channel
	// the bool reports whether the value should be emitted
	generateFunc[T any] func() (T, bool, error)
	// eachFunc is called for each item of the input channel
	eachFunc[T any] func(item T) error
	// workerFunc consumes an item of the input channel and returns the result
	// to be published on the output channel
	workerFunc[In, Out any] func(ctx context.Context, item In) (Out, error)
)

// Generate converts output of a generateFunc to a channel
// the only way to close the output channel is to return an error from the generateFunc
// values for which generateFunc reports false are not put to the channel
func Generate[T any](ctx context.Context, fn generateFunc[T]) (<-chan T, <-chan error) {
	outc := make(chan T)
	errc := make(chan error, 1)
	go func() {
		defer func() {
			close(outc)
			close(errc)
		}()
		for {
			select {
			case <-ctx.Done():
				errc <- ErrGenerateCanceled
				return
			default:
			}
			res, ok, err := fn()
			switch {
			case err != nil:
				errc <- err
				return
			case !ok:
				continue
			}
			select {
			case <-ctx.Done():
				errc <- ErrGenerateCanceled
				return
			case outc <- res:
			}
		}
	}()

	return outc, errc
}

// FromSlice streams the items of a slice in order
func FromSlice[T any](ctx context.Context, items []T) <-chan T {
	outc := make(chan T)
	go func() {
		defer close(outc)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case outc <- item:
			}
		}
	}()
	return outc
}

// Sink runs an eachFunc on each item in the order they arrive
// it is the final stage of the pipeline as it does not produce any channel
// when Sink returns early the caller cancels ctx so upstream stages can exit
func Sink[T any](ctx context.Context, ch <-chan T, fn eachFunc[T]) error {
	for item := range ch {
		select {
		case <-ctx.Done():
			return ErrSinkCanceled
		default:
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// WorkerPool fans out the input channel to N workers which all publish on the output channel
// if a worker returns an error the pool reports it, skips the current item and keeps the worker
func WorkerPool[In, Out any](ctx context.Context, concurrency int, inc <-chan In, worker workerFunc[In, Out]) (<-chan Out, <-chan error) {
	var wg sync.WaitGroup
	outc := make(chan Out)
	errc := make(chan error, concurrency)

	// only the first error of each worker is kept, the rest would block on a full errc
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			reported := false
			for item := range inc {
				res, err := worker(ctx, item)
				if err != nil {
					if !reported {
						errc <- err
						reported = true
					}
					continue
				}
				select {
				case <-ctx.Done():
					return
				case outc <- res:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(outc)
		close(errc)
	}()

	return outc, errc
}
