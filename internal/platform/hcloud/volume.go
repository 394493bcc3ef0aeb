package hcloud

import (
	"context"
	"fmt"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/util/labels"
	"github.com/imamik/simrun/internal/util/retry"
)

// volumeFormat is the filesystem new volumes are formatted with.
const volumeFormat = "ext4"

// CreateDisk creates a formatted volume in the requested location. Hetzner
// volumes are blank; the image boots from the server's root disk.
func (c *RealClient) CreateDisk(ctx context.Context, spec provider.DiskSpec) (disk *provider.Disk, err error) {
	defer observe("volume_create", time.Now(), &err)

	if spec.Zone == nil {
		return nil, fmt.Errorf("zone is required")
	}

	opts := hcloud.VolumeCreateOpts{
		Name:     spec.Name,
		Size:     spec.Size,
		Labels:   spec.Labels,
		Location: &hcloud.Location{Name: spec.Zone.Name},
		Format:   hcloud.Ptr(volumeFormat),
	}

	result, err := create(ctx, c, func(ctx context.Context) (hcloud.VolumeCreateResult, *hcloud.Response, error) {
		return c.client.Volume.Create(ctx, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create volume: %w", err)
	}

	return toDisk(result.Volume), nil
}

// WaitDisk polls the volume until it is available or timeout elapses.
func (c *RealClient) WaitDisk(ctx context.Context, id string, timeout time.Duration) (err error) {
	defer observe("volume_wait", time.Now(), &err)

	volumeID, err := parseID("volume", id)
	if err != nil {
		return err
	}

	return retry.Poll(ctx, c.timeouts.PollInterval, timeout, func(ctx context.Context) (bool, error) {
		volume, _, err := c.client.Volume.GetByID(ctx, volumeID)
		if err != nil {
			if ctx.Err() != nil || IsRateLimited(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to get volume status: %w", err)
		}
		if volume == nil {
			return false, &provider.NotFoundError{Kind: "volume", Name: id}
		}
		return volume.Status == hcloud.VolumeStatusAvailable, nil
	})
}

// DeleteDisk detaches the volume if needed and deletes it.
func (c *RealClient) DeleteDisk(ctx context.Context, id string) (err error) {
	defer observe("volume_delete", time.Now(), &err)

	return remover[*hcloud.Volume]{
		kind: "volume",
		get:  c.client.Volume.Get,
		detach: func(ctx context.Context, volume *hcloud.Volume) error {
			if volume.Server == nil {
				return nil
			}
			action, _, err := c.client.Volume.Detach(ctx, volume)
			if err != nil {
				return fmt.Errorf("failed to detach volume: %w", err)
			}
			return waitForActions(ctx, c.client, action)
		},
		del: c.client.Volume.Delete,
	}.remove(ctx, c, id)
}

// SetDiskLabels replaces the labels of the volume.
func (c *RealClient) SetDiskLabels(ctx context.Context, id string, lbls map[string]string) (err error) {
	defer observe("volume_update", time.Now(), &err)

	volumeID, err := parseID("volume", id)
	if err != nil {
		return err
	}

	_, _, err = c.client.Volume.Update(ctx, &hcloud.Volume{ID: volumeID}, hcloud.VolumeUpdateOpts{Labels: lbls})
	if err != nil {
		return fmt.Errorf("failed to update volume labels: %w", err)
	}
	return nil
}

// ListDisks returns the volumes carrying every given label.
func (c *RealClient) ListDisks(ctx context.Context, lbls map[string]string) (out []*provider.Disk, err error) {
	defer observe("volume_list", time.Now(), &err)

	volumes, err := c.client.Volume.AllWithOpts(ctx, hcloud.VolumeListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: labels.Selector(lbls)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}

	out = make([]*provider.Disk, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, toDisk(v))
	}
	return out, nil
}

func toDisk(v *hcloud.Volume) *provider.Disk {
	d := &provider.Disk{
		ID:     formatID(v.ID),
		Name:   v.Name,
		Size:   v.Size,
		Status: string(v.Status),
		Labels: v.Labels,
	}
	if v.Location != nil {
		d.Zone = v.Location.Name
	}
	return d
}
