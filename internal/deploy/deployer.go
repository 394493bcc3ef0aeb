package deploy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/go-logr/logr"

	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/util/labels"
)

// Machine is the machine record a Deployer provisions.
type Machine interface {
	// FullName returns the provider-unique instance name.
	FullName() string
	// Settings returns what to provision.
	Settings() config.MachineConfig
	// SetRunning records whether the instance exists.
	SetRunning(running bool)
}

// Deployer creates and removes the instance of one machine.
type Deployer struct {
	provider provider.Provider
	machine  Machine
	metadata map[string]string
	labels   map[string]string
	log      logr.Logger

	mu      sync.Mutex
	lastErr error
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithMetadata sets the key/value pairs exported to the startup script.
func WithMetadata(md map[string]string) Option {
	return func(d *Deployer) {
		d.metadata = md
	}
}

// WithLabels adds labels to the instance on top of the machine labels.
func WithLabels(l map[string]string) Option {
	return func(d *Deployer) {
		d.labels = labels.Merge(d.labels, l)
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(d *Deployer) {
		d.log = log
	}
}

// New returns a Deployer for m.
func New(p provider.Provider, m Machine, opts ...Option) *Deployer {
	d := &Deployer{
		provider: p,
		machine:  m,
		labels:   labels.Machine(),
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreateInstance provisions the machine's instance and marks the machine
// running. On failure the machine is left as it was and the error is also
// kept for LastError.
func (d *Deployer) CreateInstance(ctx context.Context) error {
	name := d.machine.FullName()
	log := d.log.WithValues("instance", name)

	spec, err := d.spec()
	if err != nil {
		return d.fail(fmt.Errorf("failed to build request for %s: %w", name, err))
	}

	log.Info("creating instance", "zone", spec.Zone, "type", spec.Type)
	inst, err := d.provider.Create(ctx, spec)
	if err != nil {
		return d.fail(fmt.Errorf("failed to create instance %s: %w", name, err))
	}

	d.machine.SetRunning(true)
	d.setLastError(nil)
	log.Info("instance created", "id", inst.ID, "ip", inst.PublicIP)
	return nil
}

// RemoveInstance destroys the machine's instance and marks the machine
// stopped. An instance that no longer exists counts as removed.
func (d *Deployer) RemoveInstance(ctx context.Context) error {
	name := d.machine.FullName()

	_, err := d.provider.Destroy(ctx, name)
	if err != nil && !errors.Is(err, provider.ErrNotFound) {
		return d.fail(fmt.Errorf("failed to remove instance %s: %w", name, err))
	}
	if err != nil {
		d.log.Info("instance already gone", "instance", name)
	}

	d.machine.SetRunning(false)
	d.setLastError(nil)
	d.log.Info("instance removed", "instance", name)
	return nil
}

// LastError returns the error of the last failed call, or nil.
func (d *Deployer) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Deployer) fail(err error) error {
	d.setLastError(err)
	d.log.Error(err, "deploy failed")
	return err
}

func (d *Deployer) setLastError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastErr = err
}

func (d *Deployer) spec() (provider.Spec, error) {
	cfg := d.machine.Settings()

	script, err := readStartupScript(cfg.StartupPath)
	if err != nil {
		return provider.Spec{}, err
	}

	return provider.Spec{
		Name:       d.machine.FullName(),
		Image:      cfg.Image,
		DiskSize:   cfg.DiskSize,
		Zone:       cfg.Zone,
		Network:    cfg.Network,
		Type:       cfg.Type,
		Labels:     d.labels,
		UserData:   UserData(d.metadata, script),
		AutoDelete: true,
	}, nil
}

// readStartupScript returns the script at path, or "" if there is none.
func readStartupScript(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read startup script: %w", err)
	}
	return string(b), nil
}

// InstanceList returns every instance carrying the simrun machine labels.
func InstanceList(ctx context.Context, p provider.Provider) ([]*provider.Instance, error) {
	return p.InstancesList(ctx, map[string]any{"labels": labels.Machine()})
}
