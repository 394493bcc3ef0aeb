package testing

import (
	"context"
	"testing"
	"time"
)

// defaultTestTimeout bounds a test context when the test has no deadline.
const defaultTestTimeout = 30 * time.Second

// Context returns a context that ends shortly before the test deadline, or
// after defaultTestTimeout when go test runs without one.
func Context(t *testing.T) context.Context {
	t.Helper()
	deadline, ok := t.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTestTimeout)
	} else {
		deadline = deadline.Add(-time.Second)
	}
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	t.Cleanup(cancel)
	return ctx
}
