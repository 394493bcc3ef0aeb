package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/simrun/internal/metrics"
	"github.com/imamik/simrun/internal/util/async"
	"github.com/imamik/simrun/internal/util/labels"
)

// Create provisions an instance for spec.
//
// The name is checked for collisions and every reference (zone, network,
// image) is resolved before anything is created. The disk is created first
// and must become ready before the instance is created. If anything fails
// after the disk exists, the instance (if any) and the disk are destroyed
// before the original error is returned.
func (c *Cloud) Create(ctx context.Context, spec Spec) (instance *Instance, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProvision(err, time.Since(start).Seconds())
	}()

	compute, err := c.computeAPI(ctx)
	if err != nil {
		return nil, err
	}

	if spec.Name == "" {
		return nil, errors.New("instance name is required")
	}
	if spec.DiskSize <= 0 {
		return nil, fmt.Errorf("disk size must be positive, got %d", spec.DiskSize)
	}

	existing, err := compute.GetInstance(ctx, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check instance name %s: %w", spec.Name, err)
	}
	if existing != nil {
		return nil, &DuplicateInstanceName{Name: spec.Name}
	}

	refs, err := c.resolve(ctx, compute, spec)
	if err != nil {
		return nil, err
	}

	log := c.log.WithValues("instance", spec.Name)

	diskLabels := labels.Merge(spec.Labels, map[string]string{labels.KeyInstance: spec.Name})
	disk, err := compute.CreateDisk(ctx, DiskSpec{
		Name:   spec.Name,
		Size:   spec.DiskSize,
		Zone:   refs.zone,
		Image:  refs.image,
		Labels: diskLabels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create disk for %s: %w", spec.Name, err)
	}
	log.Info("disk created", "disk", disk.ID, "size", spec.DiskSize)

	if err := compute.WaitDisk(ctx, disk.ID, c.timeouts.DiskReady); err != nil {
		return nil, c.rollback(ctx, compute, nil, disk,
			fmt.Errorf("disk for %s did not become ready: %w", spec.Name, err))
	}

	created, err := compute.CreateInstance(ctx, InstanceSpec{
		Name:     spec.Name,
		Type:     spec.Type,
		Zone:     refs.zone,
		Network:  refs.network,
		Image:    refs.image,
		DiskIDs:  []string{disk.ID},
		Labels:   spec.Labels,
		UserData: spec.UserData,
	})
	if err != nil {
		return nil, c.rollback(ctx, compute, created, disk,
			fmt.Errorf("failed to create instance %s: %w", spec.Name, err))
	}

	if err := compute.WaitInstance(ctx, created.ID, c.timeouts.InstanceReady); err != nil {
		return nil, c.rollback(ctx, compute, created, disk,
			fmt.Errorf("instance %s did not become ready: %w", spec.Name, err))
	}

	if spec.AutoDelete {
		autoDelete := labels.Merge(diskLabels, map[string]string{labels.KeyAutoDelete: labels.True})
		if err := compute.SetDiskLabels(ctx, disk.ID, autoDelete); err != nil {
			return nil, c.rollback(ctx, compute, created, disk,
				fmt.Errorf("failed to mark disk of %s for auto-delete: %w", spec.Name, err))
		}
	}

	created.Status = InstanceRunning
	log.Info("instance ready", "id", created.ID, "zone", refs.zone.Name)
	return created, nil
}

type references struct {
	zone    *Zone
	network *Network
	image   *Image
}

func (c *Cloud) resolve(ctx context.Context, compute ComputeAPI, spec Spec) (*references, error) {
	var refs references

	zone, err := compute.GetZone(ctx, spec.Zone)
	if err != nil {
		return nil, fmt.Errorf("failed to get zone %s: %w", spec.Zone, err)
	}
	if zone == nil {
		return nil, &NotFoundError{Kind: "zone", Name: spec.Zone}
	}
	refs.zone = zone

	if spec.Network != "" {
		network, err := compute.GetNetwork(ctx, spec.Network)
		if err != nil {
			return nil, fmt.Errorf("failed to get network %s: %w", spec.Network, err)
		}
		if network == nil {
			return nil, &NotFoundError{Kind: "network", Name: spec.Network}
		}
		refs.network = network
	}

	image, err := compute.GetImage(ctx, spec.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", spec.Image, err)
	}
	if image == nil {
		return nil, &NotFoundError{Kind: "image", Name: spec.Image}
	}
	refs.image = image

	return &refs, nil
}

// rollback destroys the resources of a failed Create and returns cause.
// Rollback runs on a fresh deadline so that a cancelled or timed out ctx
// still releases the resources.
func (c *Cloud) rollback(ctx context.Context, compute ComputeAPI, instance *Instance, disk *Disk, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeouts.Delete)
	defer cancel()

	cleanup := &CleanupError{}
	if instance != nil {
		if err := compute.DeleteInstance(ctx, instance.ID); err != nil {
			cleanup.Add(fmt.Errorf("delete instance %s: %w", instance.ID, err))
		}
	}
	if err := compute.DeleteDisk(ctx, disk.ID); err != nil {
		cleanup.Add(fmt.Errorf("delete disk %s: %w", disk.ID, err))
	}

	if cleanup.HasErrors() {
		metrics.RecordRollback(cleanup)
		c.log.Error(cleanup, "rollback left resources behind", "disk", disk.ID)
		return fmt.Errorf("%w (rollback: %v)", cause, cleanup)
	}

	metrics.RecordRollback(nil)
	c.log.Info("rolled back failed provisioning", "disk", disk.ID, "cause", cause.Error())
	return cause
}

// Destroy deletes the named instance and every disk marked to be deleted
// with it.
func (c *Cloud) Destroy(ctx context.Context, name string) (bool, error) {
	compute, err := c.computeAPI(ctx)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Delete)
	defer cancel()

	instance, err := compute.GetInstance(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to get instance %s: %w", name, err)
	}
	if instance == nil {
		return false, &NotFoundError{Kind: "instance", Name: name}
	}

	disks, err := compute.ListDisks(ctx, map[string]string{
		labels.KeyInstance:   name,
		labels.KeyAutoDelete: labels.True,
	})
	if err != nil {
		return false, fmt.Errorf("failed to list disks of %s: %w", name, err)
	}

	if err := compute.DeleteInstance(ctx, instance.ID); err != nil {
		return false, fmt.Errorf("failed to delete instance %s: %w", name, err)
	}

	err = async.Each(ctx, disks, 0,
		func(d *Disk) string { return "delete disk " + d.ID },
		func(ctx context.Context, d *Disk) error { return compute.DeleteDisk(ctx, d.ID) },
	)
	if err != nil {
		return true, fmt.Errorf("instance %s deleted but disks remain: %w", name, err)
	}

	c.log.Info("instance destroyed", "instance", name, "disks", len(disks))
	return true, nil
}
