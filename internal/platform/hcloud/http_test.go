package hcloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/util/retry"
)

// testServer creates an httptest server that can be used to mock Hetzner Cloud API responses.
type testServer struct {
	server *httptest.Server
	mux    *http.ServeMux
}

// newTestServer creates a new test server for mocking the Hetzner Cloud API.
func newTestServer() *testServer {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	return &testServer{
		server: server,
		mux:    mux,
	}
}

// close shuts down the test server.
func (ts *testServer) close() {
	ts.server.Close()
}

// client returns an hcloud.Client configured to use the test server.
func (ts *testServer) client() *hcloud.Client {
	return hcloud.NewClient(
		hcloud.WithToken("test-token"),
		hcloud.WithEndpoint(ts.server.URL),
	)
}

// realClient returns a RealClient configured to use the test server.
func (ts *testServer) realClient() *RealClient {
	return NewRealClient("test-token",
		WithHCloudClient(ts.client()),
		WithTimeouts(config.TestTimeouts()),
	)
}

// handleFunc registers a handler for a specific path.
func (ts *testServer) handleFunc(pattern string, handler http.HandlerFunc) {
	ts.mux.HandleFunc(pattern, handler)
}

// jsonResponse writes a JSON response with the given status code and body.
func jsonResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func volumeJSON(id int64, status string, server any) map[string]any {
	return map[string]any{
		"volume": map[string]any{
			"id":           id,
			"name":         "sim-a",
			"status":       status,
			"size":         50,
			"server":       server,
			"labels":       map[string]string{"simrun.io/instance": "sim-a"},
			"location":     map[string]any{"id": 1, "name": "nbg1"},
			"protection":   map[string]any{"delete": false},
			"linux_device": "/dev/disk/by-id/scsi-0HC_Volume_5",
			"created":      "2026-01-01T00:00:00+00:00",
		},
	}
}

func TestNewRealClient_Defaults(t *testing.T) {
	c := NewRealClient("token")

	assert.NotNil(t, c.client)
	assert.NotNil(t, c.timeouts)

	timeouts := config.TestTimeouts()
	c = NewRealClient("token", WithTimeouts(timeouts))
	assert.Same(t, timeouts, c.timeouts)
}

func TestFactory(t *testing.T) {
	api, err := Factory()(context.Background(), provider.Config{Token: "t", Project: "p"})
	require.NoError(t, err)
	assert.IsType(t, &RealClient{}, api)
}

func TestRealClient_GetInstance(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	ts.handleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "sim-a" {
			jsonResponse(w, http.StatusOK, schema.ServerListResponse{
				Servers: []schema.Server{{
					ID:     123,
					Name:   "sim-a",
					Status: "running",
					Labels: map[string]string{"simrun.io/role": "simulation"},
					PublicNet: schema.ServerPublicNet{
						IPv4: schema.ServerPublicNetIPv4{IP: "203.0.113.42"},
					},
				}},
			})
			return
		}
		jsonResponse(w, http.StatusOK, schema.ServerListResponse{Servers: []schema.Server{}})
	})

	client := ts.realClient()
	ctx := context.Background()

	t.Run("server found", func(t *testing.T) {
		inst, err := client.GetInstance(ctx, "sim-a")
		require.NoError(t, err)
		require.NotNil(t, inst)
		assert.Equal(t, "123", inst.ID)
		assert.Equal(t, provider.InstanceRunning, inst.Status)
		assert.Equal(t, "203.0.113.42", inst.PublicIP)
		assert.Equal(t, "simulation", inst.Labels["simrun.io/role"])
	})

	t.Run("server not found", func(t *testing.T) {
		inst, err := client.GetInstance(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, inst)
	})
}

func TestRealClient_ListInstances(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var query atomic.Value
	ts.handleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		jsonResponse(w, http.StatusOK, schema.ServerListResponse{
			Servers: []schema.Server{{ID: 1, Name: "sim-a"}, {ID: 2, Name: "sim-b"}},
		})
	})

	list, err := ts.realClient().ListInstances(context.Background(), []provider.Condition{
		{Key: "labels.simrun.io/role", Value: "simulation"},
		{Key: "status", Value: "running"},
	})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	q := query.Load().(url.Values)
	assert.Equal(t, "simrun.io/role=simulation", q.Get("label_selector"))
	assert.Equal(t, "running", q.Get("status"))
}

func TestRealClient_ListInstances_UnsupportedKey(t *testing.T) {
	_, err := NewRealClient("t").ListInstances(context.Background(), []provider.Condition{{Key: "zone", Value: "nbg1"}})
	assert.ErrorIs(t, err, provider.ErrInvalidFilter)
}

func TestRealClient_CreateInstance(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var body map[string]any
	ts.handleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		jsonResponse(w, http.StatusCreated, schema.ServerCreateResponse{
			Server: schema.Server{ID: 789, Name: "sim-a", Status: "initializing"},
			Action: schema.Action{ID: 1, Status: "running"},
		})
	})

	inst, err := ts.realClient().CreateInstance(context.Background(), provider.InstanceSpec{
		Name:     "sim-a",
		Type:     "cpx31",
		Zone:     &provider.Zone{Name: "nbg1"},
		Network:  &provider.Network{ID: "77", Name: "sim-net"},
		Image:    &provider.Image{ID: "42", Name: "ubuntu-24.04"},
		DiskIDs:  []string{"5"},
		Labels:   map[string]string{"simrun.io/job": "j1"},
		UserData: "#!/bin/sh\necho hi\n",
	})
	require.NoError(t, err)

	assert.Equal(t, "789", inst.ID)
	assert.Equal(t, provider.InstanceStarting, inst.Status)
	assert.Equal(t, "sim-a", body["name"])
	assert.Equal(t, "nbg1", body["location"])
	assert.Equal(t, []any{float64(5)}, body["volumes"])
	assert.Equal(t, []any{float64(77)}, body["networks"])
	assert.Equal(t, true, body["automount"])
	assert.Equal(t, "#!/bin/sh\necho hi\n", body["user_data"])
}

func TestRealClient_CreateInstance_InvalidInputNotRetried(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var calls atomic.Int32
	ts.handleFunc("/servers", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		jsonResponse(w, http.StatusUnprocessableEntity, schema.ErrorResponse{
			Error: schema.Error{Code: string(hcloud.ErrorCodeInvalidInput), Message: "invalid input"},
		})
	})

	_, err := ts.realClient().CreateInstance(context.Background(), provider.InstanceSpec{
		Name:  "sim-a",
		Type:  "cpx31",
		Zone:  &provider.Zone{Name: "nbg1"},
		Image: &provider.Image{ID: "42"},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuildServerCreateOpts_Validation(t *testing.T) {
	_, err := buildServerCreateOpts(provider.InstanceSpec{Name: "x"})
	assert.ErrorContains(t, err, "zone and image are required")

	_, err = buildServerCreateOpts(provider.InstanceSpec{
		Zone:    &provider.Zone{Name: "nbg1"},
		Image:   &provider.Image{ID: "42"},
		DiskIDs: []string{"not-a-number"},
	})
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestRealClient_WaitInstance(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var polls atomic.Int32
	ts.handleFunc("/servers/789", func(w http.ResponseWriter, _ *http.Request) {
		status := "initializing"
		if polls.Add(1) >= 3 {
			status = "running"
		}
		jsonResponse(w, http.StatusOK, schema.ServerGetResponse{
			Server: schema.Server{ID: 789, Name: "sim-a", Status: status},
		})
	})

	err := ts.realClient().WaitInstance(context.Background(), "789", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())
}

func TestRealClient_WaitInstance_Timeout(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	ts.handleFunc("/servers/789", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.ServerGetResponse{
			Server: schema.Server{ID: 789, Name: "sim-a", Status: "starting"},
		})
	})

	err := ts.realClient().WaitInstance(context.Background(), "789", 50*time.Millisecond)
	assert.ErrorIs(t, err, retry.ErrTimeout)
}

func TestRealClient_DeleteInstance(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var deleted atomic.Bool
	ts.handleFunc("/servers/789", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			jsonResponse(w, http.StatusOK, schema.ServerGetResponse{
				Server: schema.Server{ID: 789, Name: "sim-a"},
			})
		case http.MethodDelete:
			deleted.Store(true)
			jsonResponse(w, http.StatusOK, schema.ServerDeleteResponse{
				Action: schema.Action{ID: 1, Status: "running"},
			})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	ts.handleFunc("/actions/1", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.ActionGetResponse{
			Action: schema.Action{ID: 1, Status: "success", Progress: 100},
		})
	})

	require.NoError(t, ts.realClient().DeleteInstance(context.Background(), "789"))
	assert.True(t, deleted.Load())
}

func TestRealClient_CreateDisk(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var body map[string]any
	ts.handleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		resp := volumeJSON(5, "creating", nil)
		resp["action"] = map[string]any{"id": 2, "status": "running", "command": "create_volume"}
		resp["next_actions"] = []any{}
		jsonResponse(w, http.StatusCreated, resp)
	})

	disk, err := ts.realClient().CreateDisk(context.Background(), provider.DiskSpec{
		Name:   "sim-a",
		Size:   50,
		Zone:   &provider.Zone{Name: "nbg1"},
		Image:  &provider.Image{ID: "42"},
		Labels: map[string]string{"simrun.io/instance": "sim-a"},
	})
	require.NoError(t, err)

	assert.Equal(t, "5", disk.ID)
	assert.Equal(t, "creating", disk.Status)
	assert.Equal(t, "nbg1", disk.Zone)
	assert.Equal(t, float64(50), body["size"])
	assert.Equal(t, "nbg1", body["location"])
	assert.Equal(t, "ext4", body["format"])
}

func TestRealClient_WaitDisk(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var polls atomic.Int32
	ts.handleFunc("/volumes/5", func(w http.ResponseWriter, _ *http.Request) {
		status := "creating"
		if polls.Add(1) >= 2 {
			status = "available"
		}
		jsonResponse(w, http.StatusOK, volumeJSON(5, status, nil))
	})

	require.NoError(t, ts.realClient().WaitDisk(context.Background(), "5", time.Second))
	assert.Equal(t, int32(2), polls.Load())
}

func TestRealClient_WaitDisk_Gone(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	ts.handleFunc("/volumes/5", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusNotFound, schema.ErrorResponse{
			Error: schema.Error{Code: string(hcloud.ErrorCodeNotFound), Message: "volume not found"},
		})
	})

	err := ts.realClient().WaitDisk(context.Background(), "5", time.Second)
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestRealClient_DeleteDisk_DetachesAttachedVolume(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var detached, deleted atomic.Bool
	ts.handleFunc("/volumes/5", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			var server any
			if !detached.Load() {
				server = 789
			}
			jsonResponse(w, http.StatusOK, volumeJSON(5, "available", server))
		case http.MethodDelete:
			deleted.Store(true)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ts.handleFunc("/volumes/5/actions/detach", func(w http.ResponseWriter, _ *http.Request) {
		detached.Store(true)
		jsonResponse(w, http.StatusCreated, schema.ActionGetResponse{
			Action: schema.Action{ID: 3, Status: "running", Command: "detach_volume"},
		})
	})
	ts.handleFunc("/actions/3", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.ActionGetResponse{
			Action: schema.Action{ID: 3, Status: "success", Progress: 100},
		})
	})

	require.NoError(t, ts.realClient().DeleteDisk(context.Background(), "5"))
	assert.True(t, detached.Load())
	assert.True(t, deleted.Load())
}

func TestRealClient_SetDiskLabels(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var body map[string]any
	ts.handleFunc("/volumes/5", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		jsonResponse(w, http.StatusOK, volumeJSON(5, "available", 789))
	})

	err := ts.realClient().SetDiskLabels(context.Background(), "5", map[string]string{"simrun.io/auto-delete": "true"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"simrun.io/auto-delete": "true"}, body["labels"])
}

func TestRealClient_ListDisks(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	var selector atomic.Value
	ts.handleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		selector.Store(r.URL.Query().Get("label_selector"))
		vol := volumeJSON(5, "available", nil)["volume"]
		jsonResponse(w, http.StatusOK, map[string]any{"volumes": []any{vol}})
	})

	disks, err := ts.realClient().ListDisks(context.Background(), map[string]string{
		"simrun.io/instance":    "sim-a",
		"simrun.io/auto-delete": "true",
	})
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "5", disks[0].ID)
	assert.Equal(t, "simrun.io/auto-delete=true,simrun.io/instance=sim-a", selector.Load())
}

func TestRealClient_GetZone(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	ts.handleFunc("/locations", func(w http.ResponseWriter, r *http.Request) {
		var locations []any
		if r.URL.Query().Get("name") == "nbg1" {
			locations = append(locations, map[string]any{
				"id": 1, "name": "nbg1", "city": "Nuremberg", "country": "DE", "network_zone": "eu-central",
			})
		}
		jsonResponse(w, http.StatusOK, map[string]any{"locations": locations})
	})

	client := ts.realClient()

	zone, err := client.GetZone(context.Background(), "nbg1")
	require.NoError(t, err)
	require.NotNil(t, zone)
	assert.Equal(t, "Nuremberg", zone.City)
	assert.Equal(t, "eu-central", zone.NetworkZone)

	zone, err = client.GetZone(context.Background(), "mars1")
	require.NoError(t, err)
	assert.Nil(t, zone)
}

func TestRealClient_GetNetwork(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	ts.handleFunc("/networks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "sim-net" {
			jsonResponse(w, http.StatusOK, schema.NetworkListResponse{
				Networks: []schema.Network{{ID: 100, Name: "sim-net", IPRange: "10.0.0.0/16"}},
			})
			return
		}
		jsonResponse(w, http.StatusOK, schema.NetworkListResponse{Networks: []schema.Network{}})
	})

	network, err := ts.realClient().GetNetwork(context.Background(), "sim-net")
	require.NoError(t, err)
	require.NotNil(t, network)
	assert.Equal(t, "100", network.ID)
	assert.Equal(t, "10.0.0.0/16", network.IPRange)

	network, err = ts.realClient().GetNetwork(context.Background(), "other")
	require.NoError(t, err)
	assert.Nil(t, network)
}

func TestRealClient_ListTypes(t *testing.T) {
	ts := newTestServer()
	defer ts.close()

	price := func(loc, net string) map[string]any {
		return map[string]any{
			"location":      loc,
			"price_hourly":  map[string]string{"net": "0.01", "gross": "0.012"},
			"price_monthly": map[string]string{"net": net, "gross": net},
		}
	}
	ts.handleFunc("/server_types", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"server_types": []any{
			map[string]any{"id": 31, "name": "cpx31", "cores": 4, "memory": 8, "disk": 160, "architecture": "x86",
				"prices": []any{price("nbg1", "15.72"), price("fsn1", "15.72")}},
			map[string]any{"id": 22, "name": "cx22", "cores": 2, "memory": 4, "disk": 40, "architecture": "x86",
				"prices": []any{price("nbg1", "4.35")}},
			map[string]any{"id": 41, "name": "ccx13", "cores": 2, "memory": 8, "disk": 80, "architecture": "x86",
				"prices": []any{price("hel1", "14.00")}},
		}})
	})

	types, err := ts.realClient().ListTypes(context.Background(), "nbg1")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "cx22", types[0].Name)
	assert.Equal(t, "4.35", types[0].PriceMonthly)
	assert.Equal(t, "cpx31", types[1].Name)
}

func TestServerListOpts(t *testing.T) {
	tests := []struct {
		name     string
		conds    []provider.Condition
		selector string
		srvName  string
		wantErr  bool
	}{
		{name: "empty", conds: nil},
		{name: "name", conds: []provider.Condition{{Key: "name", Value: "sim-a"}}, srvName: "sim-a"},
		{
			name: "labels",
			conds: []provider.Condition{
				{Key: "labels.b", Value: "2"},
				{Key: "labels.a", Value: "1"},
			},
			selector: "a=1,b=2",
		},
		{name: "unknown key", conds: []provider.Condition{{Key: "datacenter", Value: "x"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := serverListOpts(tt.conds)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.selector, opts.LabelSelector)
			assert.Equal(t, tt.srvName, opts.Name)
		})
	}
}

func TestInstanceStatus(t *testing.T) {
	assert.Equal(t, provider.InstanceStarting, instanceStatus(hcloud.ServerStatusInitializing))
	assert.Equal(t, provider.InstanceRunning, instanceStatus(hcloud.ServerStatusRunning))
	assert.Equal(t, provider.InstanceStopping, instanceStatus(hcloud.ServerStatusDeleting))
	assert.Equal(t, provider.InstanceOff, instanceStatus(hcloud.ServerStatusOff))
	assert.Equal(t, provider.InstanceUnknown, instanceStatus(hcloud.ServerStatusMigrating))
}
