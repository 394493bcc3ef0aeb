package hcloud

import (
	"context"
	"fmt"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/util/retry"
)

// GetInstance returns the server with the given name, or nil if none exists.
func (c *RealClient) GetInstance(ctx context.Context, name string) (inst *provider.Instance, err error) {
	defer observe("server_get", time.Now(), &err)

	server, _, err := c.client.Server.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	if server == nil {
		return nil, nil
	}
	return toInstance(server), nil
}

// ListInstances returns the servers matching every condition.
func (c *RealClient) ListInstances(ctx context.Context, conds []provider.Condition) (out []*provider.Instance, err error) {
	defer observe("server_list", time.Now(), &err)

	opts, err := serverListOpts(conds)
	if err != nil {
		return nil, err
	}

	servers, err := c.client.Server.AllWithOpts(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	out = make([]*provider.Instance, 0, len(servers))
	for _, s := range servers {
		out = append(out, toInstance(s))
	}
	return out, nil
}

// CreateInstance creates a server with the given volumes attached and
// automounted. It returns once the API accepted the request; use
// WaitInstance to block until the server is running.
func (c *RealClient) CreateInstance(ctx context.Context, spec provider.InstanceSpec) (inst *provider.Instance, err error) {
	defer observe("server_create", time.Now(), &err)

	opts, err := buildServerCreateOpts(spec)
	if err != nil {
		return nil, err
	}

	result, err := create(ctx, c, func(ctx context.Context) (hcloud.ServerCreateResult, *hcloud.Response, error) {
		return c.client.Server.Create(ctx, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	c.log.V(1).Info("server create accepted", "name", spec.Name, "id", result.Server.ID)
	return toInstance(result.Server), nil
}

// buildServerCreateOpts maps an instance spec onto server create options.
func buildServerCreateOpts(spec provider.InstanceSpec) (hcloud.ServerCreateOpts, error) {
	if spec.Zone == nil || spec.Image == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("zone and image are required")
	}

	imageID, err := parseID("image", spec.Image.ID)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	opts := hcloud.ServerCreateOpts{
		Name:       spec.Name,
		ServerType: &hcloud.ServerType{Name: spec.Type},
		Image:      &hcloud.Image{ID: imageID},
		Location:   &hcloud.Location{Name: spec.Zone.Name},
		Labels:     spec.Labels,
		UserData:   spec.UserData,
	}

	if len(spec.DiskIDs) > 0 {
		for _, id := range spec.DiskIDs {
			volumeID, err := parseID("volume", id)
			if err != nil {
				return hcloud.ServerCreateOpts{}, err
			}
			opts.Volumes = append(opts.Volumes, &hcloud.Volume{ID: volumeID})
		}
		opts.Automount = hcloud.Ptr(true)
	}

	if spec.Network != nil {
		networkID, err := parseID("network", spec.Network.ID)
		if err != nil {
			return hcloud.ServerCreateOpts{}, err
		}
		opts.Networks = []*hcloud.Network{{ID: networkID}}
	}

	return opts, nil
}

// WaitInstance polls the server until it reports running or timeout
// elapses.
func (c *RealClient) WaitInstance(ctx context.Context, id string, timeout time.Duration) (err error) {
	defer observe("server_wait", time.Now(), &err)

	serverID, err := parseID("server", id)
	if err != nil {
		return err
	}

	return retry.Poll(ctx, c.timeouts.PollInterval, timeout, func(ctx context.Context) (bool, error) {
		server, _, err := c.client.Server.GetByID(ctx, serverID)
		if err != nil {
			if ctx.Err() != nil || IsRateLimited(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to get server status: %w", err)
		}
		if server == nil {
			return false, &provider.NotFoundError{Kind: "server", Name: id}
		}
		if server.Status != hcloud.ServerStatusRunning {
			c.log.V(1).Info("waiting for server", "id", id, "status", server.Status)
			return false, nil
		}
		return true, nil
	})
}

// DeleteInstance deletes the server and waits for the deletion to finish.
func (c *RealClient) DeleteInstance(ctx context.Context, id string) (err error) {
	defer observe("server_delete", time.Now(), &err)

	return remover[*hcloud.Server]{
		kind: "server",
		get:  c.client.Server.Get,
		del: func(ctx context.Context, server *hcloud.Server) (*hcloud.Response, error) {
			result, resp, err := c.client.Server.DeleteWithResult(ctx, server)
			if err != nil {
				return resp, err
			}
			return resp, waitForActions(ctx, c.client, result.Action)
		},
	}.remove(ctx, c, id)
}

func toInstance(s *hcloud.Server) *provider.Instance {
	inst := &provider.Instance{
		ID:        formatID(s.ID),
		Name:      s.Name,
		Status:    instanceStatus(s.Status),
		Labels:    s.Labels,
		CreatedAt: s.Created,
	}
	if s.Location != nil {
		inst.Zone = s.Location.Name
	}
	if s.ServerType != nil {
		inst.Type = s.ServerType.Name
	}
	if s.Image != nil {
		inst.Image = s.Image.Name
	}
	if s.PublicNet.IPv4.IP != nil {
		inst.PublicIP = s.PublicNet.IPv4.IP.String()
	}
	for _, v := range s.Volumes {
		inst.DiskIDs = append(inst.DiskIDs, formatID(v.ID))
	}
	return inst
}

func instanceStatus(s hcloud.ServerStatus) provider.InstanceStatus {
	switch s {
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting:
		return provider.InstanceStarting
	case hcloud.ServerStatusRunning:
		return provider.InstanceRunning
	case hcloud.ServerStatusStopping, hcloud.ServerStatusDeleting:
		return provider.InstanceStopping
	case hcloud.ServerStatusOff:
		return provider.InstanceOff
	default:
		return provider.InstanceUnknown
	}
}
