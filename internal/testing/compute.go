package testing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/imamik/simrun/internal/provider"
)

// Operation names accepted by FakeCompute.FailOn.
const (
	OpGetInstance    = "GetInstance"
	OpListInstances  = "ListInstances"
	OpCreateInstance = "CreateInstance"
	OpWaitInstance   = "WaitInstance"
	OpDeleteInstance = "DeleteInstance"
	OpCreateDisk     = "CreateDisk"
	OpWaitDisk       = "WaitDisk"
	OpDeleteDisk     = "DeleteDisk"
	OpSetDiskLabels  = "SetDiskLabels"
	OpListDisks      = "ListDisks"
	OpGetZone        = "GetZone"
	OpGetNetwork     = "GetNetwork"
	OpGetImage       = "GetImage"
	OpListImages     = "ListImages"
	OpListZones      = "ListZones"
	OpListTypes      = "ListTypes"
)

// FakeCompute is an in-memory provider.ComputeAPI. It is safe for
// concurrent use.
type FakeCompute struct {
	mu sync.Mutex

	instances map[string]*provider.Instance
	disks     map[string]*provider.Disk
	zones     map[string]*provider.Zone
	networks  map[string]*provider.Network
	images    map[string]*provider.Image
	types     map[string][]*provider.MachineType
	userData  map[string]string

	failures map[string]error
	calls    map[string]int
	nextID   int
}

var _ provider.ComputeAPI = (*FakeCompute)(nil)

// NewFakeCompute returns a FakeCompute seeded with the zones nbg1 and fsn1,
// the image ubuntu-24.04, the network sim-net and two machine types.
func NewFakeCompute() *FakeCompute {
	f := &FakeCompute{
		instances: make(map[string]*provider.Instance),
		disks:     make(map[string]*provider.Disk),
		zones:     make(map[string]*provider.Zone),
		networks:  make(map[string]*provider.Network),
		images:    make(map[string]*provider.Image),
		types:     make(map[string][]*provider.MachineType),
		userData:  make(map[string]string),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}

	f.zones["nbg1"] = &provider.Zone{ID: "1", Name: "nbg1", City: "Nuremberg", Country: "DE", NetworkZone: "eu-central"}
	f.zones["fsn1"] = &provider.Zone{ID: "2", Name: "fsn1", City: "Falkenstein", Country: "DE", NetworkZone: "eu-central"}
	f.images["ubuntu-24.04"] = &provider.Image{ID: "161547269", Name: "ubuntu-24.04", OSFlavor: "ubuntu", Architecture: "x86"}
	f.networks["sim-net"] = &provider.Network{ID: "77", Name: "sim-net", IPRange: "10.0.0.0/16"}
	types := []*provider.MachineType{
		{ID: "22", Name: "cx22", Cores: 2, MemoryGB: 4, DiskGB: 40, Architecture: "x86"},
		{ID: "31", Name: "cpx31", Cores: 4, MemoryGB: 8, DiskGB: 160, Architecture: "x86"},
	}
	f.types["nbg1"] = types
	f.types["fsn1"] = types[:1]

	return f
}

// FailOn makes every following call of op return err. A nil err clears it.
func (f *FakeCompute) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Calls returns how often op was called.
func (f *FakeCompute) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// AddInstance registers an existing running instance.
func (f *FakeCompute) AddInstance(name string, labels map[string]string) *provider.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := &provider.Instance{
		ID:        f.id(),
		Name:      name,
		Zone:      "nbg1",
		Type:      "cpx31",
		Status:    provider.InstanceRunning,
		Labels:    copyLabels(labels),
		CreatedAt: time.Now(),
	}
	f.instances[inst.ID] = inst
	return inst
}

// AddDisk registers an existing disk.
func (f *FakeCompute) AddDisk(name string, labels map[string]string) *provider.Disk {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &provider.Disk{ID: f.id(), Name: name, Size: 10, Zone: "nbg1", Status: "available", Labels: copyLabels(labels)}
	f.disks[d.ID] = d
	return d
}

// Disk returns the disk with the given name, or nil.
func (f *FakeCompute) Disk(name string) *provider.Disk {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.disks {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Resources returns every instance and disk as sorted "kind/name" strings.
func (f *FakeCompute) Resources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.instances)+len(f.disks))
	for _, i := range f.instances {
		out = append(out, "instance/"+i.Name)
	}
	for _, d := range f.disks {
		out = append(out, "disk/"+d.Name)
	}
	sort.Strings(out)
	return out
}

func (f *FakeCompute) id() string {
	f.nextID++
	return strconv.Itoa(1000 + f.nextID)
}

// call records op and returns the injected failure, if any. Callers hold mu.
func (f *FakeCompute) call(op string) error {
	f.calls[op]++
	return f.failures[op]
}

// GetInstance implements provider.ComputeAPI.
func (f *FakeCompute) GetInstance(_ context.Context, name string) (*provider.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpGetInstance); err != nil {
		return nil, err
	}
	for _, i := range f.instances {
		if i.Name == name {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

// ListInstances implements provider.ComputeAPI. It understands the keys
// name, status and labels.<key>.
func (f *FakeCompute) ListInstances(_ context.Context, conds []provider.Condition) ([]*provider.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpListInstances); err != nil {
		return nil, err
	}

	var out []*provider.Instance
	for _, inst := range f.instances {
		match := true
		for _, c := range conds {
			switch {
			case c.Key == "name":
				match = match && inst.Name == c.Value
			case c.Key == "status":
				match = match && string(inst.Status) == c.Value
			case strings.HasPrefix(c.Key, "labels."):
				match = match && inst.Labels[strings.TrimPrefix(c.Key, "labels.")] == c.Value
			default:
				return nil, &provider.InvalidFilter{Reason: fmt.Sprintf("unsupported key %q", c.Key)}
			}
		}
		if match {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateInstance implements provider.ComputeAPI.
func (f *FakeCompute) CreateInstance(_ context.Context, spec provider.InstanceSpec) (*provider.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpCreateInstance); err != nil {
		return nil, err
	}
	inst := &provider.Instance{
		ID:        f.id(),
		Name:      spec.Name,
		Zone:      spec.Zone.Name,
		Type:      spec.Type,
		Image:     spec.Image.Name,
		Status:    provider.InstanceStarting,
		Labels:    copyLabels(spec.Labels),
		DiskIDs:   append([]string(nil), spec.DiskIDs...),
		CreatedAt: time.Now(),
	}
	f.instances[inst.ID] = inst
	f.userData[spec.Name] = spec.UserData
	cp := *inst
	return &cp, nil
}

// UserData returns the user data the named instance was created with.
func (f *FakeCompute) UserData(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userData[name]
}

// WaitInstance implements provider.ComputeAPI.
func (f *FakeCompute) WaitInstance(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpWaitInstance); err != nil {
		return err
	}
	inst, ok := f.instances[id]
	if !ok {
		return &provider.NotFoundError{Kind: "instance", Name: id}
	}
	inst.Status = provider.InstanceRunning
	return nil
}

// DeleteInstance implements provider.ComputeAPI.
func (f *FakeCompute) DeleteInstance(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpDeleteInstance); err != nil {
		return err
	}
	if _, ok := f.instances[id]; !ok {
		return &provider.NotFoundError{Kind: "instance", Name: id}
	}
	delete(f.instances, id)
	return nil
}

// CreateDisk implements provider.ComputeAPI.
func (f *FakeCompute) CreateDisk(_ context.Context, spec provider.DiskSpec) (*provider.Disk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpCreateDisk); err != nil {
		return nil, err
	}
	d := &provider.Disk{
		ID:     f.id(),
		Name:   spec.Name,
		Size:   spec.Size,
		Zone:   spec.Zone.Name,
		Status: "creating",
		Labels: copyLabels(spec.Labels),
	}
	f.disks[d.ID] = d
	cp := *d
	return &cp, nil
}

// WaitDisk implements provider.ComputeAPI.
func (f *FakeCompute) WaitDisk(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpWaitDisk); err != nil {
		return err
	}
	d, ok := f.disks[id]
	if !ok {
		return &provider.NotFoundError{Kind: "disk", Name: id}
	}
	d.Status = "available"
	return nil
}

// DeleteDisk implements provider.ComputeAPI.
func (f *FakeCompute) DeleteDisk(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpDeleteDisk); err != nil {
		return err
	}
	if _, ok := f.disks[id]; !ok {
		return &provider.NotFoundError{Kind: "disk", Name: id}
	}
	delete(f.disks, id)
	return nil
}

// SetDiskLabels implements provider.ComputeAPI.
func (f *FakeCompute) SetDiskLabels(_ context.Context, id string, labels map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpSetDiskLabels); err != nil {
		return err
	}
	d, ok := f.disks[id]
	if !ok {
		return &provider.NotFoundError{Kind: "disk", Name: id}
	}
	d.Labels = copyLabels(labels)
	return nil
}

// ListDisks implements provider.ComputeAPI.
func (f *FakeCompute) ListDisks(_ context.Context, labels map[string]string) ([]*provider.Disk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpListDisks); err != nil {
		return nil, err
	}
	var out []*provider.Disk
	for _, d := range f.disks {
		match := true
		for k, v := range labels {
			if d.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetZone implements provider.ComputeAPI.
func (f *FakeCompute) GetZone(_ context.Context, name string) (*provider.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpGetZone); err != nil {
		return nil, err
	}
	return f.zones[name], nil
}

// GetNetwork implements provider.ComputeAPI.
func (f *FakeCompute) GetNetwork(_ context.Context, name string) (*provider.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpGetNetwork); err != nil {
		return nil, err
	}
	return f.networks[name], nil
}

// GetImage implements provider.ComputeAPI.
func (f *FakeCompute) GetImage(_ context.Context, name string) (*provider.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpGetImage); err != nil {
		return nil, err
	}
	return f.images[name], nil
}

// ListImages implements provider.ComputeAPI.
func (f *FakeCompute) ListImages(_ context.Context) ([]*provider.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpListImages); err != nil {
		return nil, err
	}
	out := make([]*provider.Image, 0, len(f.images))
	for _, img := range f.images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListZones implements provider.ComputeAPI.
func (f *FakeCompute) ListZones(_ context.Context) ([]*provider.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpListZones); err != nil {
		return nil, err
	}
	out := make([]*provider.Zone, 0, len(f.zones))
	for _, z := range f.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListTypes implements provider.ComputeAPI.
func (f *FakeCompute) ListTypes(_ context.Context, zone string) ([]*provider.MachineType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpListTypes); err != nil {
		return nil, err
	}
	return f.types[zone], nil
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
