package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrTimeout is returned by Poll when the condition never held in time.
var ErrTimeout = errors.New("timed out waiting for condition")

// Policy bounds how often and how quickly an operation is retried.
type Policy struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	// Initial is the pause after the first failure.
	Initial time.Duration
	// Max caps the pause between two attempts.
	Max time.Duration
	// Factor grows the pause after every failure.
	Factor float64
	// Jitter randomizes each pause by up to this fraction of it.
	Jitter float64
}

// DefaultPolicy returns the policy used when Do gets no options.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 6,
		Initial:  time.Second,
		Max:      30 * time.Second,
		Factor:   2,
	}
}

// Option adjusts a Policy.
type Option func(*Policy)

// Attempts sets the total number of calls. Values below one mean one.
func Attempts(n int) Option {
	return func(p *Policy) { p.Attempts = max(n, 1) }
}

// Backoff sets the first pause and the cap for later ones.
func Backoff(initial, maxDelay time.Duration) Option {
	return func(p *Policy) {
		p.Initial = initial
		if maxDelay > 0 {
			p.Max = maxDelay
		}
	}
}

// Jitter randomizes each pause by up to fraction of it.
func Jitter(fraction float64) Option {
	return func(p *Policy) { p.Jitter = fraction }
}

// Delay returns the pause after the given failed attempt, counted from zero.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.Initial)
	for range attempt {
		d *= p.Factor
		if p.Max > 0 && d >= float64(p.Max) {
			d = float64(p.Max)
			break
		}
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (2*rand.Float64() - 1)
	}
	if p.Max > 0 && d > float64(p.Max) {
		d = float64(p.Max)
	}
	return time.Duration(d)
}

// Do calls op until it succeeds, returns an error marked with Fatal, the
// policy runs out of attempts, or ctx ends.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}

	var err error
	for attempt := range p.Attempts {
		if err = op(ctx); err == nil {
			return nil
		}
		if IsFatal(err) {
			return err
		}
		if attempt == p.Attempts-1 {
			break
		}

		t := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("interrupted after %d attempts: %w", attempt+1, errors.Join(ctx.Err(), err))
		case <-t.C:
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", p.Attempts, err)
}

// Poll calls check every interval until it reports done or fails. A zero
// timeout polls for as long as ctx allows. The first check runs at once.
func Poll(ctx context.Context, interval, timeout time.Duration, check func(context.Context) (bool, error)) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		switch {
		case err != nil:
			return err
		case done:
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %v", ErrTimeout, timeout)
			}
			return ctx.Err()
		}
	}
}

// fatalError stops Do from retrying.
type fatalError struct{ err error }

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

// Fatal marks err as not worth retrying. It returns nil for a nil err.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// IsFatal reports whether err, or an error it wraps, was marked with Fatal.
func IsFatal(err error) bool {
	var f fatalError
	return errors.As(err, &f)
}
