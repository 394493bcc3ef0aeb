package hcloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"

	"github.com/imamik/simrun/internal/util/retry"
)

func apiError(code hcloud.ErrorCode) error {
	return hcloud.Error{Code: code, Message: string(code)}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		busy        bool
		rejected    bool
		notFound    bool
		rateLimited bool
	}{
		{name: "nil"},
		{name: "plain error", err: errors.New("boom")},
		{name: "locked", err: apiError(hcloud.ErrorCodeLocked), busy: true},
		{name: "conflict", err: apiError(hcloud.ErrorCodeConflict), busy: true},
		{name: "resource locked", err: apiError(hcloud.ErrorCodeResourceLocked), busy: true},
		{name: "unavailable", err: apiError(hcloud.ErrorCodeResourceUnavailable), busy: true},
		{name: "not found", err: apiError(hcloud.ErrorCodeNotFound), rejected: true, notFound: true},
		{name: "invalid input", err: apiError(hcloud.ErrorCodeInvalidInput), rejected: true},
		{name: "invalid server type", err: apiError(hcloud.ErrorCodeInvalidServerType), rejected: true},
		{name: "uniqueness", err: apiError(hcloud.ErrorCodeUniquenessError), rejected: true},
		{name: "rate limit", err: apiError(hcloud.ErrorCodeRateLimitExceeded), rateLimited: true},
		{
			name:     "wrapped not found",
			err:      fmt.Errorf("failed to get volume: %w", apiError(hcloud.ErrorCodeNotFound)),
			rejected: true,
			notFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.busy, isBusy(tt.err), "isBusy")
			assert.Equal(t, tt.rejected, isRejected(tt.err), "isRejected")
			assert.Equal(t, tt.notFound, IsNotFound(tt.err), "IsNotFound")
			assert.Equal(t, tt.rateLimited, IsRateLimited(tt.err), "IsRateLimited")
		})
	}
}

func TestRetryMarkers(t *testing.T) {
	busy := apiError(hcloud.ErrorCodeLocked)
	rejected := apiError(hcloud.ErrorCodeInvalidInput)
	plain := errors.New("connection reset")

	assert.False(t, retry.IsFatal(failFastOnRejected(busy)))
	assert.False(t, retry.IsFatal(failFastOnRejected(plain)))
	assert.True(t, retry.IsFatal(failFastOnRejected(rejected)))

	assert.False(t, retry.IsFatal(retryOnlyBusy(busy)))
	assert.True(t, retry.IsFatal(retryOnlyBusy(plain)))
	assert.True(t, retry.IsFatal(retryOnlyBusy(rejected)))
	assert.NoError(t, retryOnlyBusy(nil))
}
