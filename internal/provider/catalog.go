package provider

import (
	"context"
	"fmt"
)

// ImagesList returns the bootable images.
func (c *Cloud) ImagesList(ctx context.Context) ([]*Image, error) {
	compute, err := c.computeAPI(ctx)
	if err != nil {
		return nil, err
	}

	images, err := compute.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// ZonesList returns the zones instances can be placed in.
func (c *Cloud) ZonesList(ctx context.Context) ([]*Zone, error) {
	compute, err := c.computeAPI(ctx)
	if err != nil {
		return nil, err
	}

	zones, err := compute.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, nil
}

// TypesList returns the machine types available in zone.
func (c *Cloud) TypesList(ctx context.Context, zone string) ([]*MachineType, error) {
	compute, err := c.computeAPI(ctx)
	if err != nil {
		return nil, err
	}

	z, err := compute.GetZone(ctx, zone)
	if err != nil {
		return nil, fmt.Errorf("failed to get zone %s: %w", zone, err)
	}
	if z == nil {
		return nil, &NotFoundError{Kind: "zone", Name: zone}
	}

	types, err := compute.ListTypes(ctx, z.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list machine types in %s: %w", zone, err)
	}
	return types, nil
}

// InstancesList returns the instances matching filter. Keys of nested maps
// are joined into dotted paths, e.g. {"labels": {"role": "simulation"}}
// becomes "labels.role eq simulation".
func (c *Cloud) InstancesList(ctx context.Context, filter map[string]any) ([]*Instance, error) {
	conds, err := FlattenFilter(filter)
	if err != nil {
		return nil, err
	}

	compute, err := c.computeAPI(ctx)
	if err != nil {
		return nil, err
	}

	c.log.V(1).Info("listing instances", "filter", JoinConditions(conds))

	instances, err := compute.ListInstances(ctx, conds)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}
