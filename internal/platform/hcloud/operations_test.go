package hcloud

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/util/retry"
)

// bareClient has test timeouts and no API client, for code paths that
// never wait on an action.
func bareClient() *RealClient {
	return &RealClient{timeouts: config.TestTimeouts()}
}

// volumeRemover returns a remover whose lookup yields v and whose delete
// answers with the errors in order, then succeeds.
func volumeRemover(v *hcloud.Volume, deleteErrs ...error) (remover[*hcloud.Volume], *int) {
	calls := 0
	return remover[*hcloud.Volume]{
		kind: "volume",
		get: func(context.Context, string) (*hcloud.Volume, *hcloud.Response, error) {
			return v, nil, nil
		},
		del: func(context.Context, *hcloud.Volume) (*hcloud.Response, error) {
			calls++
			if calls <= len(deleteErrs) {
				return nil, deleteErrs[calls-1]
			}
			return nil, nil
		},
	}, &calls
}

func TestRemover(t *testing.T) {
	t.Parallel()

	busy := hcloud.Error{Code: hcloud.ErrorCodeLocked, Message: "locked"}

	tests := []struct {
		name      string
		volume    *hcloud.Volume
		errs      []error
		wantCalls int
		wantErr   string
	}{
		{name: "deletes existing volume", volume: &hcloud.Volume{ID: 1}, wantCalls: 1},
		{name: "missing volume is a no-op", volume: nil, wantCalls: 0},
		{name: "busy volume is retried", volume: &hcloud.Volume{ID: 1}, errs: []error{busy}, wantCalls: 2},
		{
			name:      "other errors are not retried",
			volume:    &hcloud.Volume{ID: 1},
			errs:      []error{errors.New("forbidden")},
			wantCalls: 1,
			wantErr:   "forbidden",
		},
		{
			name:      "busy until attempts run out",
			volume:    &hcloud.Volume{ID: 1},
			errs:      []error{busy, busy, busy, busy},
			wantCalls: 3,
			wantErr:   "giving up after 3 attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, calls := volumeRemover(tt.volume, tt.errs...)
			err := r.remove(context.Background(), bareClient(), "1")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, *calls)
		})
	}
}

func TestRemover_BusyCodes(t *testing.T) {
	t.Parallel()

	for _, code := range busyCodes {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()

			r, calls := volumeRemover(&hcloud.Volume{ID: 1}, hcloud.Error{Code: code})
			require.NoError(t, r.remove(context.Background(), bareClient(), "1"))
			assert.Equal(t, 2, *calls)
		})
	}
}

func TestRemover_LookupFailure(t *testing.T) {
	t.Parallel()

	r := remover[*hcloud.Server]{
		kind: "server",
		get: func(context.Context, string) (*hcloud.Server, *hcloud.Response, error) {
			return nil, nil, errors.New("API error")
		},
		del: func(context.Context, *hcloud.Server) (*hcloud.Response, error) {
			t.Fatal("delete must not run after a failed lookup")
			return nil, nil
		},
	}

	err := r.remove(context.Background(), bareClient(), "sim-a")
	assert.ErrorContains(t, err, "failed to get server: API error")
	assert.True(t, retry.IsFatal(err))
}

func TestRemover_DetachRunsFirst(t *testing.T) {
	t.Parallel()

	var order []string
	r, _ := volumeRemover(&hcloud.Volume{ID: 1, Server: &hcloud.Server{ID: 9}})
	del := r.del
	r.detach = func(context.Context, *hcloud.Volume) error {
		order = append(order, "detach")
		return nil
	}
	r.del = func(ctx context.Context, v *hcloud.Volume) (*hcloud.Response, error) {
		order = append(order, "delete")
		return del(ctx, v)
	}

	require.NoError(t, r.remove(context.Background(), bareClient(), "1"))
	assert.Equal(t, []string{"detach", "delete"}, order)
}

func TestRemover_DetachFailure(t *testing.T) {
	t.Parallel()

	r, calls := volumeRemover(&hcloud.Volume{ID: 1})
	r.detach = func(context.Context, *hcloud.Volume) error { return errors.New("detach refused") }

	assert.ErrorContains(t, r.remove(context.Background(), bareClient(), "1"), "detach refused")
	assert.Zero(t, *calls)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "accepted", wantCalls: 1},
		{name: "transient failure retried", errs: []error{errors.New("connection reset")}, wantCalls: 2},
		{name: "rejected request", errs: []error{hcloud.Error{Code: hcloud.ErrorCodeInvalidInput}}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			got, err := create(context.Background(), bareClient(), func(context.Context) (string, *hcloud.Response, error) {
				calls++
				if calls <= len(tt.errs) {
					return "", nil, tt.errs[calls-1]
				}
				return "created", nil, nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "created", got)
		})
	}
}

func TestWaitForActions_SkipsNil(t *testing.T) {
	t.Parallel()

	// A nil client is never touched when there is nothing to wait for.
	require.NoError(t, waitForActions(context.Background(), nil))
	require.NoError(t, waitForActions(context.Background(), nil, nil, nil))
}

func TestWaitForActions_WithAction(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	defer ts.close()

	ts.handleFunc("/actions/1", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.ActionGetResponse{
			Action: schema.Action{ID: 1, Status: "success", Progress: 100},
		})
	})

	require.NoError(t, waitForActions(context.Background(), ts.client(), &hcloud.Action{ID: 1}))
}
