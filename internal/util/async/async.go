package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Each calls fn for every item concurrently, with at most limit calls in
// flight when limit is positive. It waits for all calls and returns their
// errors joined in item order, each prefixed with label(item).
func Each[T any](ctx context.Context, items []T, limit int, label func(T) string, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	errs := make([]error, len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, item := range items {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := fn(ctx, item); err != nil {
				errs[i] = fmt.Errorf("%s: %w", label(item), err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
