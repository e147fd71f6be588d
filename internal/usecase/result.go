package usecase

import "fmt"

// fetchResult is the settled outcome of one fetch: either items or an error.
type fetchResult[T any] struct {
	items []T
	err   error
}

func settle[T any](items []T, err error) fetchResult[T] {
	if err != nil {
		return fetchResult[T]{err: err}
	}
	return fetchResult[T]{items: items}
}

// itemsOr returns the items, or calls onErr and returns nothing.
func (r fetchResult[T]) itemsOr(onErr func(error)) []T {
	if r.err != nil {
		onErr(r.err)
		return nil
	}
	return r.items
}

func (r fetchResult[T]) failed() bool {
	return r.err != nil
}

// guarded settles fetch, turning a panic into an error.
func guarded[T any](fetch func() ([]T, error)) (res fetchResult[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = fetchResult[T]{err: fmt.Errorf("unexpected failure: %v", r)}
		}
	}()
	return settle(fetch())
}
