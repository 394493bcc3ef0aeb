package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/simrun/internal/config"
)

// Provider is the cloud capability consumed by the deploy orchestrator and
// the bucket manager.
type Provider interface {
	// Create provisions an instance and its disk, rolling back on failure.
	Create(ctx context.Context, spec Spec) (*Instance, error)
	// Destroy removes the named instance and its auto-delete disks.
	Destroy(ctx context.Context, name string) (bool, error)

	Files(ctx context.Context, prefix string) ([]FileRef, error)
	// File returns nil when the object does not exist.
	File(ctx context.Context, name string) (*FileRef, error)
	DeleteFile(ctx context.Context, name string) error
	CreateDir(ctx context.Context, path string) (string, error)
	UploadURL(ctx context.Context, name string) (*SignedURL, error)
	SignedURL(ctx context.Context, name string, expires time.Duration) (*SignedURL, error)
	ReportName() string
	ResultPath() string

	ImagesList(ctx context.Context) ([]*Image, error)
	ZonesList(ctx context.Context) ([]*Zone, error)
	TypesList(ctx context.Context, zone string) ([]*MachineType, error)
	InstancesList(ctx context.Context, filter map[string]any) ([]*Instance, error)
}

// ComputeAPI is the low level compute backend. Lookups by name return
// (nil, nil) when the resource does not exist.
type ComputeAPI interface {
	GetInstance(ctx context.Context, name string) (*Instance, error)
	ListInstances(ctx context.Context, conds []Condition) ([]*Instance, error)
	CreateInstance(ctx context.Context, spec InstanceSpec) (*Instance, error)
	WaitInstance(ctx context.Context, id string, timeout time.Duration) error
	DeleteInstance(ctx context.Context, id string) error

	CreateDisk(ctx context.Context, spec DiskSpec) (*Disk, error)
	WaitDisk(ctx context.Context, id string, timeout time.Duration) error
	DeleteDisk(ctx context.Context, id string) error
	SetDiskLabels(ctx context.Context, id string, labels map[string]string) error
	ListDisks(ctx context.Context, labels map[string]string) ([]*Disk, error)

	GetZone(ctx context.Context, name string) (*Zone, error)
	GetNetwork(ctx context.Context, name string) (*Network, error)
	GetImage(ctx context.Context, name string) (*Image, error)
	ListImages(ctx context.Context) ([]*Image, error)
	ListZones(ctx context.Context) ([]*Zone, error)
	ListTypes(ctx context.Context, zone string) ([]*MachineType, error)
}

// StorageAPI is the low level object storage backend. Head returns
// (nil, nil) when the object does not exist.
type StorageAPI interface {
	List(ctx context.Context, prefix string) ([]FileRef, error)
	Head(ctx context.Context, key string) (*FileRef, error)
	Put(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	PresignPut(ctx context.Context, key string, expires time.Duration) (*SignedURL, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (*SignedURL, error)
}

// ComputeFactory opens a compute backend for a validated config.
type ComputeFactory func(ctx context.Context, cfg Config) (ComputeAPI, error)

// StorageFactory opens a storage backend for a validated config.
type StorageFactory func(ctx context.Context, cfg Config) (StorageAPI, error)

// Cloud implements Provider on top of a ComputeAPI and a StorageAPI. Each
// backend is opened once, on first use, and cached for the lifetime of the
// Cloud.
type Cloud struct {
	cfg      Config
	timeouts *config.Timeouts
	log      logr.Logger

	newCompute ComputeFactory
	newStorage StorageFactory

	computeOnce sync.Once
	compute     ComputeAPI
	computeErr  error

	storageOnce sync.Once
	storage     StorageAPI
	storageErr  error
}

var _ Provider = (*Cloud)(nil)

// Option configures a Cloud.
type Option func(*Cloud)

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Cloud) { c.log = log }
}

// WithTimeouts overrides the timeouts loaded from the environment.
func WithTimeouts(t *config.Timeouts) Option {
	return func(c *Cloud) { c.timeouts = t }
}

// WithComputeFactory sets how the compute backend is opened.
func WithComputeFactory(f ComputeFactory) Option {
	return func(c *Cloud) { c.newCompute = f }
}

// WithStorageFactory sets how the storage backend is opened.
func WithStorageFactory(f StorageFactory) Option {
	return func(c *Cloud) { c.newStorage = f }
}

// New returns a Cloud. No connection is opened until first use.
func New(cfg Config, opts ...Option) *Cloud {
	c := &Cloud{
		cfg:      cfg.withDefaults(),
		timeouts: config.LoadTimeouts(),
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReportName returns the well-known report object name.
func (c *Cloud) ReportName() string { return c.cfg.ReportName }

// ResultPath returns the root of all result paths.
func (c *Cloud) ResultPath() string { return c.cfg.ResultPath }

// UploadName returns the object name used for uploads without a name.
func (c *Cloud) UploadName() string { return c.cfg.UploadName }

// computeAPI opens the compute backend on first use. The factory gets a
// context detached from the caller's cancellation since its result is
// cached for the life of the Cloud.
func (c *Cloud) computeAPI(ctx context.Context) (ComputeAPI, error) {
	c.computeOnce.Do(func() {
		if err := c.cfg.CheckConnection(); err != nil {
			c.computeErr = err
			return
		}
		if c.newCompute == nil {
			c.computeErr = fmt.Errorf("no compute backend configured")
			return
		}
		c.compute, c.computeErr = c.newCompute(context.WithoutCancel(ctx), c.cfg)
		if c.computeErr == nil {
			c.log.V(1).Info("compute connection opened", "project", c.cfg.Project)
		}
	})
	return c.compute, c.computeErr
}

func (c *Cloud) storageAPI(ctx context.Context) (StorageAPI, error) {
	c.storageOnce.Do(func() {
		if err := c.cfg.CheckStorage(); err != nil {
			c.storageErr = err
			return
		}
		if c.newStorage == nil {
			c.storageErr = fmt.Errorf("no storage backend configured")
			return
		}
		c.storage, c.storageErr = c.newStorage(context.WithoutCancel(ctx), c.cfg)
		if c.storageErr == nil {
			c.log.V(1).Info("storage connection opened", "bucket", c.cfg.Bucket)
		}
	})
	return c.storage, c.storageErr
}
