package hcloud

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/simrun/internal/provider"
)

// GetZone returns the location with the given name, or nil.
func (c *RealClient) GetZone(ctx context.Context, name string) (zone *provider.Zone, err error) {
	defer observe("location_get", time.Now(), &err)

	loc, _, err := c.client.Location.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", name, err)
	}
	if loc == nil {
		return nil, nil
	}
	return toZone(loc), nil
}

// GetNetwork returns the network with the given name, or nil.
func (c *RealClient) GetNetwork(ctx context.Context, name string) (network *provider.Network, err error) {
	defer observe("network_get", time.Now(), &err)

	n, _, err := c.client.Network.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get network %s: %w", name, err)
	}
	if n == nil {
		return nil, nil
	}

	network = &provider.Network{ID: formatID(n.ID), Name: n.Name}
	if n.IPRange != nil {
		network.IPRange = n.IPRange.String()
	}
	return network, nil
}

// GetImage returns the image with the given name, or nil.
func (c *RealClient) GetImage(ctx context.Context, name string) (image *provider.Image, err error) {
	defer observe("image_get", time.Now(), &err)

	img, _, err := c.client.Image.Get(ctx, name) //nolint:staticcheck
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if img == nil {
		return nil, nil
	}
	return toImage(img), nil
}

// ListImages returns the available system images.
func (c *RealClient) ListImages(ctx context.Context) (out []*provider.Image, err error) {
	defer observe("image_list", time.Now(), &err)

	images, err := c.client.Image.AllWithOpts(ctx, hcloud.ImageListOpts{
		Type:   []hcloud.ImageType{hcloud.ImageTypeSystem},
		Status: []hcloud.ImageStatus{hcloud.ImageStatusAvailable},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	out = make([]*provider.Image, 0, len(images))
	for _, img := range images {
		out = append(out, toImage(img))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListZones returns every location.
func (c *RealClient) ListZones(ctx context.Context) (out []*provider.Zone, err error) {
	defer observe("location_list", time.Now(), &err)

	locations, err := c.client.Location.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	out = make([]*provider.Zone, 0, len(locations))
	for _, loc := range locations {
		out = append(out, toZone(loc))
	}
	return out, nil
}

// ListTypes returns the non-deprecated server types priced in zone,
// ordered by cores and memory.
func (c *RealClient) ListTypes(ctx context.Context, zone string) (out []*provider.MachineType, err error) {
	defer observe("server_type_list", time.Now(), &err)

	types, err := c.client.ServerType.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list server types: %w", err)
	}

	for _, st := range types {
		if st.IsDeprecated() {
			continue
		}
		price, ok := monthlyPrice(st, zone)
		if !ok {
			continue
		}
		out = append(out, &provider.MachineType{
			ID:           formatID(st.ID),
			Name:         st.Name,
			Description:  st.Description,
			Cores:        st.Cores,
			MemoryGB:     st.Memory,
			DiskGB:       st.Disk,
			Architecture: string(st.Architecture),
			PriceMonthly: price,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Cores != out[j].Cores {
			return out[i].Cores < out[j].Cores
		}
		return out[i].MemoryGB < out[j].MemoryGB
	})
	return out, nil
}

// monthlyPrice returns the net monthly price of st in location, and
// whether st is offered there at all.
func monthlyPrice(st *hcloud.ServerType, location string) (string, bool) {
	for _, p := range st.Pricings {
		if p.Location != nil && p.Location.Name == location {
			return p.Monthly.Net, true
		}
	}
	return "", false
}

func toZone(loc *hcloud.Location) *provider.Zone {
	return &provider.Zone{
		ID:          formatID(loc.ID),
		Name:        loc.Name,
		Description: loc.Description,
		Country:     loc.Country,
		City:        loc.City,
		NetworkZone: string(loc.NetworkZone),
	}
}

func toImage(img *hcloud.Image) *provider.Image {
	return &provider.Image{
		ID:           formatID(img.ID),
		Name:         img.Name,
		Description:  img.Description,
		OSFlavor:     img.OSFlavor,
		Architecture: string(img.Architecture),
	}
}
