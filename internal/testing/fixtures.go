package testing

import (
	"context"

	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/provider"
)

// ProviderFixture is a provider.Cloud backed by in-memory fakes.
type ProviderFixture struct {
	Compute *FakeCompute
	Storage *FakeStorage
	Cloud   *provider.Cloud
	Config  provider.Config
}

// ProviderConfig returns a provider config with every required field set.
func ProviderConfig() provider.Config {
	return provider.Config{
		Token:     "test-token",
		Project:   "test-project",
		Endpoint:  "https://storage.test",
		Region:    "eu-central",
		Bucket:    "bucket",
		AccessKey: "access",
		SecretKey: "secret",
	}
}

// NewProviderFixture wires a Cloud to fresh fakes.
func NewProviderFixture(opts ...provider.Option) *ProviderFixture {
	fx := &ProviderFixture{
		Compute: NewFakeCompute(),
		Storage: NewFakeStorage(),
		Config:  ProviderConfig(),
	}

	base := []provider.Option{
		provider.WithTimeouts(config.TestTimeouts()),
		provider.WithComputeFactory(func(context.Context, provider.Config) (provider.ComputeAPI, error) {
			return fx.Compute, nil
		}),
		provider.WithStorageFactory(func(context.Context, provider.Config) (provider.StorageAPI, error) {
			return fx.Storage, nil
		}),
	}
	fx.Cloud = provider.New(fx.Config, append(base, opts...)...)
	return fx
}

// Spec returns a provisioning request that succeeds against NewFakeCompute.
func Spec(name string) provider.Spec {
	return provider.Spec{
		Name:       name,
		Image:      "ubuntu-24.04",
		DiskSize:   50,
		Zone:       "nbg1",
		Network:    "sim-net",
		Type:       "cpx31",
		Labels:     map[string]string{"simrun.io/role": "simulation"},
		AutoDelete: true,
	}
}
