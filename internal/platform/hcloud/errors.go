package hcloud

import (
	"errors"
	"slices"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/simrun/internal/util/retry"
)

// busyCodes mean another action holds the resource for now.
var busyCodes = []hcloud.ErrorCode{
	hcloud.ErrorCodeLocked,
	hcloud.ErrorCodeConflict,
	hcloud.ErrorCodeResourceLocked,
	hcloud.ErrorCodeResourceUnavailable,
}

// rejectedCodes mean the request itself is wrong and will fail again.
var rejectedCodes = []hcloud.ErrorCode{
	hcloud.ErrorCodeNotFound,
	hcloud.ErrorCodeInvalidInput,
	hcloud.ErrorCodeInvalidServerType,
	hcloud.ErrorCodeUniquenessError,
}

// errorCode returns the API error code carried by err, or "" for errors
// that did not come from the API.
func errorCode(err error) hcloud.ErrorCode {
	var apiErr hcloud.Error
	if err == nil || !errors.As(err, &apiErr) {
		return ""
	}
	return apiErr.Code
}

func isBusy(err error) bool {
	return slices.Contains(busyCodes, errorCode(err))
}

func isRejected(err error) bool {
	return slices.Contains(rejectedCodes, errorCode(err))
}

// failFastOnRejected marks rejected requests fatal for retry.Do.
func failFastOnRejected(err error) error {
	if isRejected(err) {
		return retry.Fatal(err)
	}
	return err
}

// retryOnlyBusy marks every error except a busy resource fatal.
func retryOnlyBusy(err error) error {
	if err == nil || isBusy(err) {
		return err
	}
	return retry.Fatal(err)
}

// IsNotFound reports whether err is an API not_found error.
func IsNotFound(err error) bool {
	return errorCode(err) == hcloud.ErrorCodeNotFound
}

// IsRateLimited reports whether err is an API rate limit error.
func IsRateLimited(err error) bool {
	return errorCode(err) == hcloud.ErrorCodeRateLimitExceeded
}
