package hcloud

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/simrun/internal/metrics"
	"github.com/imamik/simrun/internal/util/retry"
)

// retrying runs op under the client's retry policy.
func (c *RealClient) retrying(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(ctx, op,
		retry.Attempts(c.timeouts.RetryMaxAttempts),
		retry.Backoff(c.timeouts.RetryInitialDelay, 0),
		retry.Jitter(0.1),
	)
}

// create calls the API until it accepts the request or rejects it outright.
func create[R any](ctx context.Context, c *RealClient, call func(ctx context.Context) (R, *hcloud.Response, error)) (R, error) {
	var result R
	err := c.retrying(ctx, func(ctx context.Context) error {
		res, _, err := call(ctx)
		if err != nil {
			return failFastOnRejected(err)
		}
		result = res
		return nil
	})
	return result, err
}

// remover deletes one resource looked up by ID or name. A resource that is
// already gone counts as deleted. Busy resources are retried.
type remover[T any] struct {
	kind string
	get  func(ctx context.Context, idOrName string) (T, *hcloud.Response, error)
	// detach, if set, runs ahead of every delete attempt.
	detach func(ctx context.Context, resource T) error
	del    func(ctx context.Context, resource T) (*hcloud.Response, error)
}

// remove runs the deletion bounded by the client's delete timeout.
func (r remover[T]) remove(ctx context.Context, c *RealClient, idOrName string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Delete)
	defer cancel()

	return c.retrying(ctx, func(ctx context.Context) error {
		resource, _, err := r.get(ctx, idOrName)
		if err != nil {
			return retry.Fatal(fmt.Errorf("failed to get %s: %w", r.kind, err))
		}
		if reflect.ValueOf(resource).IsNil() {
			return nil
		}

		if r.detach != nil {
			if err := r.detach(ctx, resource); err != nil {
				return retryOnlyBusy(err)
			}
		}
		_, err = r.del(ctx, resource)
		return retryOnlyBusy(err)
	})
}

// observe records the outcome and latency of an API operation.
//
//	defer observe("server_create", time.Now(), &err)
func observe(operation string, start time.Time, err *error) {
	metrics.RecordHCloudAPICall(operation, *err, time.Since(start).Seconds())
}

// waitForActions blocks until every non-nil action completed.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}
